package web

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/assessment-finder/internal/logger"
	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/recommend"
	"github.com/spigell/assessment-finder/internal/render"
)

type pageView struct {
	Query      string
	Loading    bool
	Error      string
	Results    []recommend.Recommendation
	CountLabel string
}

type stateView struct {
	Phase   string                     `json:"phase"`
	Query   string                     `json:"query"`
	Loading bool                       `json:"loading"`
	Error   string                     `json:"error"`
	Results []recommend.Recommendation `json:"results"`
}

type submitRequest struct {
	Query string `json:"query"`
}

func newPageView(st query.State) pageView {
	results := st.Results()
	return pageView{
		Query:      st.Query(),
		Loading:    st.Loading(),
		Error:      st.ErrorMessage(),
		Results:    results,
		CountLabel: render.CountLabel(len(results)),
	}
}

func newStateView(st query.State) stateView {
	return stateView{
		Phase:   st.Phase().String(),
		Query:   st.Query(),
		Loading: st.Loading(),
		Error:   st.ErrorMessage(),
		Results: st.Results(),
	}
}

// session resolves the caller's submitter and refreshes the cookie.
func (s *Server) session(c *gin.Context) *query.Submitter {
	id, _ := c.Cookie(sessionCookie)
	id, sub := s.sessions.get(id)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.cfg.SessionTTL.Seconds()), "/", "", false, true)
	c.Set(logger.FieldSession, id)

	return sub
}

func (s *Server) pageHandler(c *gin.Context) {
	sub := s.session(c)
	c.HTML(http.StatusOK, "index.tmpl", newPageView(sub.State()))
}

// submitFormHandler runs the submission and redirects back to the page, so a
// reload never re-posts the form.
func (s *Server) submitFormHandler(c *gin.Context) {
	sub := s.session(c)

	st, status, ok := s.submit(c, sub, c.PostForm("query"))
	if !ok {
		c.HTML(status, "index.tmpl", newPageView(st))
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) submitJSONHandler(c *gin.Context) {
	sub := s.session(c)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object with a query field"})
		return
	}

	st, status, ok := s.submit(c, sub, req.Query)
	if !ok {
		c.JSON(status, newStateView(st))
		return
	}

	switch st.Phase() {
	case query.PhaseInvalid:
		status = http.StatusUnprocessableEntity
	case query.PhaseFailed:
		status = http.StatusBadGateway
	default:
		status = http.StatusOK
	}

	c.JSON(status, newStateView(st))
}

func (s *Server) stateHandler(c *gin.Context) {
	sub := s.session(c)
	c.JSON(http.StatusOK, newStateView(sub.State()))
}

// submit runs the query unless the session is loading (the trigger is
// disabled, 409) or the server-wide rate is exceeded (429). It detaches from
// the request context: a browser that navigates away still gets its settled
// state on the next page load.
func (s *Server) submit(c *gin.Context, sub *query.Submitter, q string) (query.State, int, bool) {
	if st := sub.State(); st.Loading() {
		return st, http.StatusConflict, false
	}

	if !s.limiter.Allow() {
		return sub.State(), http.StatusTooManyRequests, false
	}

	ctx := context.WithoutCancel(c.Request.Context())
	st, ok := sub.TrySubmit(ctx, q)
	if !ok {
		return st, http.StatusConflict, false
	}

	return st, http.StatusOK, true
}

func ignoreHandler(c *gin.Context) {
}

func (s *Server) versionHandler(c *gin.Context) {
	type vResp struct {
		Version   string `json:"version,omitempty"`
		GoVersion string `json:"go_version,omitempty"`
	}

	c.JSON(http.StatusOK, vResp{
		Version:   s.deps.Version,
		GoVersion: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})
}

func (s *Server) healthCheckHandler(c *gin.Context) {
	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	status := http.StatusOK
	hcAPI := hcResp{Healthy: true}

	if err := s.deps.Upstream.Health(c.Request.Context()); err != nil {
		s.logger.Warn("recommendation api health check failed", zap.Error(err))
		status = http.StatusInternalServerError
		hcAPI = hcResp{Healthy: false, Message: err.Error()}
	}

	c.JSON(status, map[string]hcResp{"recommendation_api": hcAPI})
}
