package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago-dev/voyago/internal/apiclient"
)

// Response is the envelope every gateway JSON route answers with
type Response struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	Meta     any             `json:"meta,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

func respondFailure(c *gin.Context, status int, message, detail string) {
	c.JSON(status, Response{Success: false, Message: message, Error: detail})
}

func respondData(c *gin.Context, status int, data any, message string) {
	raw, err := toRaw(data)
	if err != nil {
		respondFailure(c, http.StatusInternalServerError, "Failed to encode response", "")
		return
	}
	c.JSON(status, Response{Success: true, Data: raw, Message: message})
}

func toRaw(v any) (json.RawMessage, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return d, nil
	default:
		return json.Marshal(v)
	}
}

// upstreamStatus maps an upstream failure onto the status the browser sees.
// Transport failures (no status) become 502.
func upstreamStatus(err error) int {
	if status := apiclient.StatusOf(err); status != 0 {
		return status
	}
	if apiclient.IsCanceled(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// relayError forwards an upstream failure: same status, same message, and
// the upstream error detail outside production only
func (s *Server) relayError(c *gin.Context, err error) {
	apiErr := apiclient.AsError(err)
	detail := ""
	if !s.config.IsProduction() {
		detail = apiErr.Detail
		if detail == "" && apiErr.Err != nil {
			detail = apiErr.Err.Error()
		}
	}
	respondFailure(c, upstreamStatus(err), apiErr.Message, detail)
}
