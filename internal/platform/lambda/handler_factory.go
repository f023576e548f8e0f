package lambda

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/labstack/echo/v4"
	"practice-governance/internal/ports"
)

// Handler serves API Gateway HTTP API (payload v2) events.
type Handler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// NewHandler proxies API Gateway events through the echo router. Conversion
// failures are logged with the gateway request id before being returned.
func NewHandler(e *echo.Echo, logger ports.Logger) Handler {
	adapter := echoadapter.NewV2(e)
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		if err != nil {
			logger.Error(ctx, "lambda proxy failed",
				"route_key", req.RouteKey,
				"gateway_request_id", req.RequestContext.RequestID,
				"error", err,
			)
		}
		return resp, err
	}
}
