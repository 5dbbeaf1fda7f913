package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-plugin"
)

// External tool servers let a third-party process contribute tools without
// being vendored into this binary, matching spec.md §9's "tool registry
// polymorphism" requirement that external-server tools resolve to the same
// Tool record as built-ins and dynamic tools. There is no concrete
// go-plugin usage anywhere in the example pack (see DESIGN.md); this file
// follows go-plugin's documented net/rpc plugin shape, the simplest of its
// two supported transports.
var externalHandshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AGENT1GO_TOOL_PLUGIN",
	MagicCookieValue: "ops-agent-tool-server",
}

// ExternalToolRPC is the interface an external tool server process
// implements and exposes over net/rpc.
type ExternalToolRPC interface {
	ListTools() ([]ExternalToolDef, error)
	Call(req ExternalCallRequest) (ExternalCallResponse, error)
}

// ExternalToolDef describes one tool an external server offers.
type ExternalToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ExternalCallRequest/Response carry one tool invocation over the wire.
type ExternalCallRequest struct {
	Name string
	Args map[string]any
}

type ExternalCallResponse struct {
	ResultJSON string
	Error      string
}

// externalToolPlugin adapts ExternalToolRPC to plugin.Plugin's net/rpc
// transport.
type externalToolPlugin struct {
	Impl ExternalToolRPC
}

func (p *externalToolPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &externalToolRPCServer{impl: p.Impl}, nil
}

func (p *externalToolPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &externalToolRPCClient{client: c}, nil
}

type externalToolRPCServer struct{ impl ExternalToolRPC }

func (s *externalToolRPCServer) ListTools(_ struct{}, resp *[]ExternalToolDef) error {
	tools, err := s.impl.ListTools()
	*resp = tools
	return err
}

func (s *externalToolRPCServer) Call(req ExternalCallRequest, resp *ExternalCallResponse) error {
	out, err := s.impl.Call(req)
	*resp = out
	return err
}

type externalToolRPCClient struct{ client *rpc.Client }

func (c *externalToolRPCClient) ListTools() ([]ExternalToolDef, error) {
	var resp []ExternalToolDef
	err := c.client.Call("Plugin.ListTools", struct{}{}, &resp)
	return resp, err
}

func (c *externalToolRPCClient) Call(req ExternalCallRequest) (ExternalCallResponse, error) {
	var resp ExternalCallResponse
	err := c.client.Call("Plugin.Call", req, &resp)
	return resp, err
}

// ExternalServerConfig names an external tool-server process to launch and
// the group its tools are exposed under.
type ExternalServerConfig struct {
	Name    string
	Command string
	Args    []string
	Group   string
}

// RegisterExternalServer launches an external tool server and registers
// each tool it advertises, namespaced as "{server}__{tool}" so two servers
// can't collide (spec.md §9). The returned closer must be called on
// shutdown to terminate the child process cleanly.
func RegisterExternalServer(r *Registry, cfg ExternalServerConfig) (closer func(), err error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: externalHandshake,
		Plugins: map[string]plugin.Plugin{
			"tools": &externalToolPlugin{},
		},
		Cmd:              exec.Command(cfg.Command, cfg.Args...),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("external tool server %q: connecting: %w", cfg.Name, err)
	}

	raw, err := rpcClient.Dispense("tools")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("external tool server %q: dispensing: %w", cfg.Name, err)
	}

	impl, ok := raw.(ExternalToolRPC)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("external tool server %q: unexpected plugin type", cfg.Name)
	}

	defs, err := impl.ListTools()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("external tool server %q: listing tools: %w", cfg.Name, err)
	}

	for _, def := range defs {
		qualifiedName := cfg.Name + "__" + def.Name
		t := &Tool{
			Name:        qualifiedName,
			Description: def.Description,
			InputSchema: def.InputSchema,
			Group:       cfg.Group,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := impl.Call(ExternalCallRequest{Name: def.Name, Args: args})
				if err != nil {
					return nil, fmt.Errorf("external tool server %q: calling %q: %w", cfg.Name, def.Name, err)
				}
				if resp.Error != "" {
					return nil, fmt.Errorf("external tool server %q: %q returned error: %s", cfg.Name, def.Name, resp.Error)
				}
				var result any
				if err := json.Unmarshal([]byte(resp.ResultJSON), &result); err != nil {
					return nil, fmt.Errorf("external tool server %q: %q returned unparseable result: %w", cfg.Name, def.Name, err)
				}
				return result, nil
			},
		}
		if err := r.Register(t); err != nil {
			client.Kill()
			return nil, fmt.Errorf("external tool server %q: registering %q: %w", cfg.Name, def.Name, err)
		}
	}

	return client.Kill, nil
}
