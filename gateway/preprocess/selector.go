package preprocess

import (
	"sort"

	"github.com/relayhq/llmgateway/gateway"
)

// Selector holds an ordered rule set and applies whichever rules gate
// true for a given (wire_family, variant, request) to the request, in
// priority-descending order (§4.5).
type Selector struct {
	rules []Rule
}

// New builds a Selector from an explicit rule list. Use Default for
// the gateway's built-in rule set.
func New(rules ...Rule) *Selector {
	s := &Selector{rules: append([]Rule(nil), rules...)}
	sort.SliceStable(s.rules, func(i, j int) bool {
		return s.rules[i].Priority > s.rules[j].Priority
	})
	return s
}

// Select returns the enabled, gated-true rules for this request, in
// the order they'll be applied.
func (s *Selector) Select(wireFamily gateway.WireFamily, variant string, req *gateway.Request) []Rule {
	var matched []Rule
	for _, r := range s.rules {
		if !r.Enabled {
			continue
		}
		if r.Condition == nil || r.Condition(wireFamily, variant, req) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Apply selects and runs every matching rule's Action against req, in
// priority order.
func (s *Selector) Apply(wireFamily gateway.WireFamily, variant string, req *gateway.Request) {
	for _, r := range s.Select(wireFamily, variant, req) {
		r.Action(req)
	}
}

// Default returns the gateway's built-in preprocessing rules (§4.5):
// Anthropic role validation runs for every Anthropic-bound request and
// tool-schema conversion for every Anthropic-bound request with tools;
// default tool choice runs for any request with tools, whatever its
// wire family; max_tokens defaulting runs whenever the
// caller omitted one; self-hosted-variant rules (model name mapping,
// parameter stripping) are registered per variant by the caller since
// the mapping table and variant name are deployment-specific.
func Default() *Selector {
	return New(
		Rule{
			Name:      "anthropic_validate_roles",
			Condition: ForWireFamily(gateway.WireAnthropic),
			Action:    ValidateRoles(gateway.RoleSystem, gateway.RoleUser, gateway.RoleAssistant, gateway.RoleTool),
			Priority:  100,
			Enabled:   true,
		},
		Rule{
			Name:      "anthropic_convert_tool_schema",
			Condition: func(f gateway.WireFamily, _ string, req *gateway.Request) bool { return f == gateway.WireAnthropic && len(req.Tools) > 0 },
			Action:    ConvertToolSchema(),
			Priority:  90,
			Enabled:   true,
		},
		Rule{
			Name:      "set_default_tool_choice",
			Condition: HasTools,
			Action:    SetDefaultToolChoice(),
			Priority:  50,
			Enabled:   true,
		},
		Rule{
			Name:      "add_max_tokens_default",
			Condition: MissingMaxTokens,
			Action:    AddMaxTokensDefault(1024),
			Priority:  10,
			Enabled:   true,
		},
	)
}
