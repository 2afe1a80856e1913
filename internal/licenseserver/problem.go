package licenseserver

import (
	"net/http"

	"github.com/go-chi/render"
)

// Problem is an RFC 7807 problem details object.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

func newProblem(status int, title string, err error) Problem {
	p := Problem{Type: "about:blank", Title: title, Status: status}
	if err != nil {
		p.Detail = err.Error()
	}
	return p
}

// Render implements the chi render.Renderer interface. The body is written
// by render.Respond.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}
