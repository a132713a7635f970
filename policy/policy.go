/*
Package policy implements a capture policy loaded from a YAML document.

The document contains the default decisions and a list of rules. For
each channel, the first rule that matches the request and sets a
decision for that channel wins. When no rule applies, the default
decision is used, and when the default is not set either, the channel
is captured entirely.

Example:

	default:
	  input: all
	  errors: all
	  response: tail:4096
	rules:
	- name: uploads
	  methods: [POST, PUT]
	  path-prefix: /upload
	  header: {X-Debug: "1"}
	  input: head:1024
	- name: failures
	  status: [500, 599]
	  response: all

Rules with a status range are considered only for the response
decision. A status range with a single value matches that status only.
*/
package policy

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/zalando/recorder/capture"
)

var (
	ErrInvalidStatusRange = errors.New("status range must have one or two values between 100 and 999")
	ErrInvalidMethod      = errors.New("invalid method")
)

// Channels holds the decisions for the three captured channels. A nil
// decision means that the channel is not set.
type Channels struct {
	Input    *capture.Decision `yaml:"input,omitempty"`
	Errors   *capture.Decision `yaml:"errors,omitempty"`
	Response *capture.Decision `yaml:"response,omitempty"`
}

// Rule sets the decisions for the requests that it matches. Every
// condition that is set must match.
type Rule struct {
	Name       string            `yaml:"name"`
	Methods    []string          `yaml:"methods,omitempty"`
	PathPrefix string            `yaml:"path-prefix,omitempty"`
	Header     map[string]string `yaml:"header,omitempty"`
	Status     []int             `yaml:"status,omitempty"`

	Channels `yaml:",inline"`

	methods map[string]bool
}

// Rules is a record.Policy.
type Rules struct {
	Default Channels `yaml:"default"`
	Rules   []*Rule  `yaml:"rules"`
}

// Load parses and validates a policy document. Unknown keys are
// rejected.
func Load(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		var cerr *capture.ConfigurationError
		if errors.As(err, &cerr) {
			return nil, cerr
		}

		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	if err := r.init(); err != nil {
		return nil, err
	}

	return &r, nil
}

// LoadFile loads a policy document from a file.
func LoadFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	return Load(data)
}

func (r *Rules) init() error {
	for i, ri := range r.Rules {
		if ri == nil {
			return fmt.Errorf("rule %d: empty rule", i)
		}

		if err := ri.init(); err != nil {
			name := ri.Name
			if name == "" {
				name = fmt.Sprint(i)
			}

			return fmt.Errorf("rule %s: %w", name, err)
		}
	}

	return nil
}

func (ri *Rule) init() error {
	if len(ri.Methods) > 0 {
		ri.methods = make(map[string]bool)
		for _, m := range ri.Methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "" {
				return ErrInvalidMethod
			}

			ri.methods[m] = true
		}
	}

	switch len(ri.Status) {
	case 0:
	case 1:
		ri.Status = []int{ri.Status[0], ri.Status[0]}
	case 2:
	default:
		return ErrInvalidStatusRange
	}

	if len(ri.Status) == 2 {
		if ri.Status[0] < 100 || ri.Status[1] > 999 || ri.Status[0] > ri.Status[1] {
			return ErrInvalidStatusRange
		}
	}

	return nil
}

func (ri *Rule) matchRequest(r *http.Request) bool {
	if ri.methods != nil && !ri.methods[r.Method] {
		return false
	}

	if ri.PathPrefix != "" && !strings.HasPrefix(r.URL.Path, ri.PathPrefix) {
		return false
	}

	for name, value := range ri.Header {
		if r.Header.Get(name) != value {
			return false
		}
	}

	return true
}

func (ri *Rule) matchStatus(statusCode int) bool {
	return len(ri.Status) == 0 || statusCode >= ri.Status[0] && statusCode <= ri.Status[1]
}

func decide(d *capture.Decision) capture.Decision {
	if d == nil {
		return capture.All()
	}

	return *d
}

func (r *Rules) DecideInput(req *http.Request) capture.Decision {
	for _, ri := range r.Rules {
		if ri.Input != nil && len(ri.Status) == 0 && ri.matchRequest(req) {
			return *ri.Input
		}
	}

	return decide(r.Default.Input)
}

func (r *Rules) DecideErrors(req *http.Request) capture.Decision {
	for _, ri := range r.Rules {
		if ri.Errors != nil && len(ri.Status) == 0 && ri.matchRequest(req) {
			return *ri.Errors
		}
	}

	return decide(r.Default.Errors)
}

func (r *Rules) DecideResponse(req *http.Request, statusCode int, _ http.Header, _ error) capture.Decision {
	for _, ri := range r.Rules {
		if ri.Response != nil && ri.matchStatus(statusCode) && ri.matchRequest(req) {
			return *ri.Response
		}
	}

	return decide(r.Default.Response)
}

// Override replaces the default decisions with the ones set in c.
func (r *Rules) Override(c Channels) {
	if c.Input != nil {
		r.Default.Input = c.Input
	}

	if c.Errors != nil {
		r.Default.Errors = c.Errors
	}

	if c.Response != nil {
		r.Default.Response = c.Response
	}
}
