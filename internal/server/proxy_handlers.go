package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voyago-dev/voyago/internal/apiclient"
	"github.com/voyago-dev/voyago/internal/listing"
	"github.com/voyago-dev/voyago/internal/models"
	"github.com/voyago-dev/voyago/internal/validation"
)

// maxProxyBody bounds request bodies forwarded upstream
const maxProxyBody = 1 << 20

var (
	errBodyTooLarge = errors.New("request body too large")
	errInvalidJSON  = errors.New("request body is not valid JSON")
)

// PackageInput is the required-field check for new packages
type PackageInput struct {
	Title string   `json:"title" validate:"required"`
	Price *float64 `json:"price" validate:"required,gte=0"`
}

// ContactStatusInput is the required-field check for contact updates
type ContactStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// @Summary Admin profile
// @Description Forward the admin profile fetch; the upstream data envelope is unwrapped
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} Response
// @Router /api/admin/profile [get]
func (s *Server) getAdminProfile(c *gin.Context) {
	res := apiclient.Call[json.RawMessage](c.Request.Context(), s.client, c.Request, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/admin/profile",
		Header: forwardHeaders(c.Request),
	})
	if !res.OK {
		s.relayError(c, res.Err)
		return
	}
	if res.Value == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Value)
}

// @Summary Update admin profile
// @Description Forward a profile update and wrap the result as {success, data, message}
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /api/admin/profile [patch]
func (s *Server) updateAdminProfile(c *gin.Context) {
	s.forwardMutation(c, http.MethodPatch, "/admin/profile", nil)
}

// proxyGet forwards a read. Path templates use :name segments filled from
// the route params.
func (s *Server) proxyGet(tmpl string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.client.Do(c.Request.Context(), c.Request, apiclient.Request{
			Method: http.MethodGet,
			Path:   expandPath(tmpl, c),
			Query:  c.Request.URL.Query(),
			Header: forwardHeaders(c.Request),
		})
		if err != nil {
			s.relayError(c, err)
			return
		}
		if resp.Body == nil {
			respondData(c, resp.Status, nil, "")
			return
		}
		if err := apiclient.CheckEnvelope(resp.Status, resp.Body); err != nil {
			s.relayError(c, err)
			return
		}
		env, _ := apiclient.ParseEnvelope(resp.Body)
		respondData(c, resp.Status, apiclient.Unwrap(resp.Body), envelopeMessage(env))
	}
}

// proxyList forwards a listing read, normalizes the collection and applies
// local sorting and pagination. Failures answer an empty list plus message.
func (s *Server) proxyList(tmpl string, keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		params := listing.ParseParams(query)

		resp, err := s.client.Do(c.Request.Context(), c.Request, apiclient.Request{
			Method: http.MethodGet,
			Path:   expandPath(tmpl, c),
			Query:  listing.Upstream(query),
			Header: forwardHeaders(c.Request),
		})
		if err == nil && resp.Body != nil {
			err = apiclient.CheckEnvelope(resp.Status, resp.Body)
		}
		if err != nil {
			apiErr := apiclient.AsError(err)
			c.JSON(upstreamStatus(err), Response{
				Success: false,
				Data:    json.RawMessage("[]"),
				Message: apiErr.Message,
				Meta:    listing.Meta{Page: 1, Limit: params.Limit, Pages: 1},
			})
			return
		}

		var body json.RawMessage
		if resp != nil {
			body = resp.Body
		}
		items, err := apiclient.UnwrapList(body, keys...)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Upstream listing had no collection")
			items = []json.RawMessage{}
		}

		page, meta := listing.Apply(items, params)
		raw, err := json.Marshal(page)
		if err != nil {
			respondFailure(c, http.StatusInternalServerError, "Failed to encode response", "")
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: raw, Meta: meta})
	}
}

// proxyMutation forwards a write, optionally checking required fields first
func (s *Server) proxyMutation(method, tmpl string, check func() any) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.forwardMutation(c, method, expandPath(tmpl, c), check)
	}
}

// forwardMutation sends the JSON body upstream, records an audit entry and
// wraps the reply as {success, data, message}
func (s *Server) forwardMutation(c *gin.Context, method, upstreamPath string, check func() any) {
	body, err := readJSONBody(c)
	if errors.Is(err, errBodyTooLarge) {
		respondFailure(c, http.StatusRequestEntityTooLarge, "Request body too large", "")
		return
	}
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "Request body must be valid JSON", "")
		return
	}

	if check != nil && len(body) > 0 {
		if err := s.checkRequired(body, check); err != nil {
			respondFailure(c, http.StatusBadRequest, validation.Message(err), "")
			return
		}
	} else if check != nil {
		respondFailure(c, http.StatusBadRequest, "Request body is required", "")
		return
	}

	req := apiclient.Request{
		Method: method,
		Path:   upstreamPath,
		Header: forwardHeaders(c.Request),
	}
	if len(body) > 0 {
		req.Body = body
	}

	resp, err := s.client.Do(c.Request.Context(), c.Request, req)
	s.recordAudit(c, method, upstreamPath, resp, err)
	if err != nil {
		s.relayError(c, err)
		return
	}

	if resp.Status == http.StatusNoContent || resp.Body == nil {
		c.JSON(http.StatusOK, Response{Success: true, Message: "Done"})
		return
	}
	if err := apiclient.CheckEnvelope(resp.Status, resp.Body); err != nil {
		s.relayError(c, err)
		return
	}

	env, _ := apiclient.ParseEnvelope(resp.Body)
	message := envelopeMessage(env)
	if message == "" {
		message = "Updated successfully"
	}
	respondData(c, resp.Status, apiclient.Unwrap(resp.Body), message)
}

// checkRequired decodes body into a fresh value from newInput and validates it
func (s *Server) checkRequired(body json.RawMessage, newInput func() any) error {
	in := newInput()
	if err := json.Unmarshal(body, in); err != nil {
		return err
	}
	return s.validator.Struct(in)
}

func newPackageInput() any       { return &PackageInput{} }
func newContactStatusInput() any { return &ContactStatusInput{} }

func (s *Server) recordAudit(c *gin.Context, method, upstreamPath string, resp *apiclient.Response, err error) {
	if s.audit == nil {
		return
	}

	entry := &models.AuditEntry{
		ClaimedActor: s.claimedActor(c),
		Method:       method,
		Path:         upstreamPath,
		RequestID:    requestID(c),
	}
	if resp != nil {
		entry.UpstreamStatus = resp.Status
	}
	if entry.Succeeded() {
		entry.Actor = entry.ClaimedActor
	}
	if err != nil {
		entry.Message = apiclient.AsError(err).Message
	}

	// The request context may already be canceled; the trail is kept regardless
	if err := s.audit.Record(context.WithoutCancel(c.Request.Context()), entry); err != nil {
		s.logger.Error().Err(err).Str("request_id", entry.RequestID).Msg("Failed to record audit entry")
		return
	}
	s.logger.Debug().
		Str("actor", entry.Actor).
		Str("claimed_actor", entry.ClaimedActor).
		Str("method", method).
		Str("path", upstreamPath).
		Bool("succeeded", entry.Succeeded()).
		Msg("Admin mutation forwarded")
}

func readJSONBody(c *gin.Context) (json.RawMessage, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxProxyBody {
		return nil, errBodyTooLarge
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, errInvalidJSON
	}
	return json.RawMessage(trimmed), nil
}

func envelopeMessage(env *apiclient.Envelope) string {
	if env == nil {
		return ""
	}
	return env.Message
}

// expandPath fills :name segments of tmpl from the route params
func expandPath(tmpl string, c *gin.Context) string {
	segments := strings.Split(tmpl, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = url.PathEscape(c.Param(seg[1:]))
		}
	}
	return strings.Join(segments, "/")
}
