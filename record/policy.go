package record

import (
	"net/http"

	"github.com/zalando/recorder/capture"
)

// Policy decides, per request, which channels are captured and how.
type Policy interface {

	// DecideInput is called before the handler is invoked, and
	// decides about the capture of the request body.
	DecideInput(r *http.Request) capture.Decision

	// DecideErrors is called before the handler is invoked, and
	// decides about the capture of the diagnostic stream.
	DecideErrors(r *http.Request) capture.Decision

	// DecideResponse is called when the response is started. The
	// header is the one sent to the client. The err argument is set
	// only when the response was started with StartError.
	DecideResponse(r *http.Request, statusCode int, header http.Header, err error) capture.Decision
}

// DefaultPolicy captures every channel entirely. Embed it to override
// only some of the decisions:
//
//	type uploadsOnly struct{ record.DefaultPolicy }
//
//	func (uploadsOnly) DecideInput(r *http.Request) capture.Decision {
//		if r.Method != "POST" {
//			return capture.None()
//		}
//
//		return capture.Head(1 << 10)
//	}
type DefaultPolicy struct{}

func (DefaultPolicy) DecideInput(*http.Request) capture.Decision  { return capture.All() }
func (DefaultPolicy) DecideErrors(*http.Request) capture.Decision { return capture.All() }

func (DefaultPolicy) DecideResponse(*http.Request, int, http.Header, error) capture.Decision {
	return capture.All()
}

// PolicyFuncs adapts functions to the Policy interface. A nil function
// captures the channel entirely.
type PolicyFuncs struct {
	Input    func(*http.Request) capture.Decision
	Errors   func(*http.Request) capture.Decision
	Response func(*http.Request, int, http.Header, error) capture.Decision
}

func (p PolicyFuncs) DecideInput(r *http.Request) capture.Decision {
	if p.Input == nil {
		return capture.All()
	}

	return p.Input(r)
}

func (p PolicyFuncs) DecideErrors(r *http.Request) capture.Decision {
	if p.Errors == nil {
		return capture.All()
	}

	return p.Errors(r)
}

func (p PolicyFuncs) DecideResponse(r *http.Request, statusCode int, header http.Header, err error) capture.Decision {
	if p.Response == nil {
		return capture.All()
	}

	return p.Response(r, statusCode, header, err)
}

// Static returns a policy with a fixed decision per channel.
func Static(input, errors, response capture.Decision) Policy {
	return PolicyFuncs{
		Input:  func(*http.Request) capture.Decision { return input },
		Errors: func(*http.Request) capture.Decision { return errors },
		Response: func(*http.Request, int, http.Header, error) capture.Decision {
			return response
		},
	}
}
