package server

import (
	"context"
	"net/http"
	"time"

	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/transcripts"
	"github.com/alkime/scribe/pkg/collections"
	"github.com/gin-gonic/gin"
)

// jobView is a Job plus the display fields the page renders.
type jobView struct {
	provider.Job
	FileName   string `json:"fileName"`
	Label      string `json:"label"`
	CreatedAgo string `json:"createdAgo"`
}

type listResponse struct {
	Jobs            []jobView  `json:"jobs"`
	Loading         bool       `json:"loading"`
	LastRefreshedAt *time.Time `json:"lastRefreshedAt,omitempty"`
}

type selectionResponse struct {
	ID          string          `json:"id,omitempty"`
	Status      provider.Status `json:"status,omitempty"`
	Label       string          `json:"label,omitempty"`
	Text        string          `json:"text,omitempty"`
	ErrorDetail string          `json:"errorDetail,omitempty"`
	FetchError  string          `json:"fetchError,omitempty"`
	Loading     bool            `json:"loading"`
	Polling     bool            `json:"polling"`
}

func listView(st transcripts.State, now time.Time) listResponse {
	resp := listResponse{
		Jobs: collections.Apply(st.Jobs, func(j provider.Job) jobView {
			return jobView{
				Job:        j,
				FileName:   j.FileName(),
				Label:      j.Status.Label(),
				CreatedAgo: j.CreatedAgo(now),
			}
		}),
		Loading: st.LoadingList,
	}
	if !st.LastRefreshedAt.IsZero() {
		at := st.LastRefreshedAt
		resp.LastRefreshedAt = &at
	}

	return resp
}

func selectionView(st transcripts.State) selectionResponse {
	resp := selectionResponse{
		ID:          st.SelectedID,
		Status:      st.SelectedStatus,
		Text:        st.SelectedText,
		ErrorDetail: st.SelectedError,
		FetchError:  st.FetchError,
		Loading:     st.LoadingSelected,
		Polling:     st.Polling,
	}
	if st.HasSelection() {
		resp.Label = st.SelectedStatus.Label()
	}

	return resp
}

// detached keeps provider calls running if the browser goes away; late
// results still land in controller state.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) handleListTranscripts(c *gin.Context) {
	c.JSON(http.StatusOK, listView(s.app.Transcripts.State(), time.Now()))
}

func (s *Server) handleRefreshTranscripts(c *gin.Context) {
	if err := s.app.Transcripts.RefreshList(detached(c)); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, listView(s.app.Transcripts.State(), time.Now()))
}

func (s *Server) handleSelectTranscript(c *gin.Context) {
	if _, err := s.app.Transcripts.Select(detached(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, selectionView(s.app.Transcripts.State()))
}

func (s *Server) handleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, selectionView(s.app.Transcripts.State()))
}

func (s *Server) handleRetrySelection(c *gin.Context) {
	if _, err := s.app.Transcripts.Retry(detached(c)); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, selectionView(s.app.Transcripts.State()))
}
