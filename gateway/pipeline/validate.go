package pipeline

import (
	"context"
	"fmt"

	"github.com/relayhq/llmgateway/gateway"
)

// validate runs the VALIDATE stage (§4.7 step 1): structural checks
// that have nothing to do with routing or the target wire family, plus
// the role-normalization scenario S5 describes — a caller-supplied
// role string outside the canonical Role enum is coerced to "user" in
// lenient mode (the default, logging a warning) or rejected in strict
// mode (RoutingHints.ValidationLevel == "strict").
func validate(ctx context.Context, req *gateway.Request, logger gateway.Logger) error {
	if req.ID == "" {
		return gateway.NewBadRequest("request id is required")
	}
	if len(req.Messages) == 0 {
		return gateway.NewBadRequest("request must contain at least one message")
	}
	if req.VirtualModel == "" {
		return gateway.NewBadRequest("virtual_model is required")
	}
	if len(req.Metadata.Annotations) > gateway.MaxAnnotations {
		return gateway.NewBadRequest(fmt.Sprintf("metadata.annotations exceeds the %d-entry limit", gateway.MaxAnnotations))
	}

	strict := req.RoutingHints.ValidationLevel == "strict"
	for i := range req.Messages {
		if err := normalizeRole(ctx, &req.Messages[i], strict, logger); err != nil {
			return err
		}
	}

	return nil
}

var canonicalRoles = map[gateway.Role]bool{
	gateway.RoleSystem:    true,
	gateway.RoleUser:      true,
	gateway.RoleAssistant: true,
	gateway.RoleTool:      true,
}

func normalizeRole(ctx context.Context, m *gateway.Message, strict bool, logger gateway.Logger) error {
	if canonicalRoles[m.Role] {
		return nil
	}
	if strict {
		return gateway.NewBadRequest(fmt.Sprintf("message role %q is not one of system/user/assistant/tool", m.Role))
	}
	logger.Warn(ctx, "coercing unrecognized message role to user", gateway.F("role", string(m.Role)))
	m.Role = gateway.RoleUser
	return nil
}
