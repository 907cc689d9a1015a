package client

import (
	"context"
	"sort"
	"sync"

	"github.com/lhassa8/LMCP/protocol"
)

// ParameterSchema describes one parameter of a tool.
type ParameterSchema struct {
	Type        string
	Required    bool
	Description string
}

// ToolDescriptor is the immutable description of one invocable operation.
// Descriptors are created from a discovery response and replaced wholesale
// on refresh, never mutated.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]ParameterSchema
}

// SchemaRegistry is the per-connection cache of tool and resource
// descriptors. A lookup never triggers process or network activity; callers
// must have discovered first (the invoker auto-discovers on an empty cache).
type SchemaRegistry struct {
	conn *Conn

	mu        sync.RWMutex
	tools     map[string]ToolDescriptor
	resources []protocol.Resource
}

func newSchemaRegistry(conn *Conn) *SchemaRegistry {
	return &SchemaRegistry{conn: conn}
}

// Discover issues tools/list, parses the returned descriptors and replaces
// the tool cache atomically. A malformed schema (missing name, non-object
// parameter schema) fails with a DiscoveryError.
func (r *SchemaRegistry) Discover(ctx context.Context) ([]ToolDescriptor, error) {
	resp, err := r.conn.Call(ctx, protocol.MethodListTools, protocol.ListToolsRequestParams{})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, NewServerError(protocol.MethodListTools, int(resp.Error.Code), resp.Error.Message)
	}

	var result protocol.ListToolsResult
	if err := decodePayload(resp.Result, &result); err != nil {
		return nil, NewDiscoveryError("malformed tools/list result", err)
	}

	tools := make(map[string]ToolDescriptor, len(result.Tools))
	list := make([]ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		if t.Name == "" {
			return nil, NewDiscoveryError("tool descriptor missing name", nil)
		}
		if t.InputSchema.Type != "" && t.InputSchema.Type != "object" {
			return nil, NewDiscoveryError("tool "+t.Name+" has non-object parameter schema", nil)
		}
		desc := descriptorFromTool(t)
		tools[desc.Name] = desc
		list = append(list, desc)
	}

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()

	r.conn.logger.Debug("discovered %d tools on connection %s", len(list), r.conn.ID())
	return list, nil
}

// descriptorFromTool flattens the wire schema's properties/required split
// into a per-parameter required flag.
func descriptorFromTool(t protocol.Tool) ToolDescriptor {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}
	params := make(map[string]ParameterSchema, len(t.InputSchema.Properties))
	for name, prop := range t.InputSchema.Properties {
		params[name] = ParameterSchema{
			Type:        prop.Type,
			Required:    required[name],
			Description: prop.Description,
		}
	}
	return ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

// DiscoverResources issues resources/list and replaces the resource cache.
func (r *SchemaRegistry) DiscoverResources(ctx context.Context) ([]protocol.Resource, error) {
	resp, err := r.conn.Call(ctx, protocol.MethodListResources, protocol.ListResourcesRequestParams{})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, NewServerError(protocol.MethodListResources, int(resp.Error.Code), resp.Error.Message)
	}

	var result protocol.ListResourcesResult
	if err := decodePayload(resp.Result, &result); err != nil {
		return nil, NewDiscoveryError("malformed resources/list result", err)
	}

	r.mu.Lock()
	r.resources = result.Resources
	r.mu.Unlock()
	return result.Resources, nil
}

// Tool returns the cached descriptor for name. Pure cache lookup.
func (r *SchemaRegistry) Tool(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// Tools returns all cached descriptors, sorted by name.
func (r *SchemaRegistry) Tools() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Resources returns the cached resource descriptors.
func (r *SchemaRegistry) Resources() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources
}

// Empty reports whether tool discovery has run yet.
func (r *SchemaRegistry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools == nil
}

// Invalidate clears the cache, forcing the next invocation to rediscover.
func (r *SchemaRegistry) Invalidate() {
	r.mu.Lock()
	r.tools = nil
	r.resources = nil
	r.mu.Unlock()
}

// Validate checks the argument map against the descriptor: every required
// parameter must be present; unknown keys pass through for forward
// compatibility. In lenient mode a violation is logged instead of rejected.
func (r *SchemaRegistry) Validate(desc ToolDescriptor, args map[string]interface{}) error {
	names := make([]string, 0, len(desc.Parameters))
	for name := range desc.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		param := desc.Parameters[name]
		if !param.Required {
			continue
		}
		if _, ok := args[name]; ok {
			continue
		}
		if r.conn.cfg.Validation == ValidationLenient {
			r.conn.logger.Warn("tool %q: missing required parameter %q, sending anyway", desc.Name, name)
			continue
		}
		return NewMissingParameterError(desc.Name, name)
	}
	return nil
}
