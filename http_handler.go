package tendercrawler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Searcher runs a crawl session. *Crawler implements it.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]AnnouncementRecord, error)
}

type crawlRequest struct {
	Keyword string `json:"keyword" binding:"required"`
	Days    int    `json:"days"`
}

type crawlResponse struct {
	Count   int                  `json:"count"`
	Results []AnnouncementRecord `json:"results"`
}

// CrawlHandler serves crawl requests one at a time; a request arriving while
// a session is running gets 409.
type CrawlHandler struct {
	searcher Searcher
	logger   Logger
	running  sync.Mutex
}

func NewCrawlHandler(searcher Searcher, logger Logger) *CrawlHandler {
	return &CrawlHandler{searcher: searcher, logger: logger}
}

func (h *CrawlHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tendercrawler"})
}

func (h *CrawlHandler) CrawlKepco(c *gin.Context) {
	var body crawlRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	req := NewSearchRequest([]string{body.Keyword}, body.Days)
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if !h.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"detail": "a crawl is already running"})
		return
	}
	defer h.running.Unlock()

	results, err := h.searcher.Search(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Crawl request for %q failed: %v", body.Keyword, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if results == nil {
		results = []AnnouncementRecord{}
	}
	c.JSON(http.StatusOK, crawlResponse{Count: len(results), Results: results})
}

// NewRouter exposes GET / and POST /crawl/kepco.
func NewRouter(handler *CrawlHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/", handler.Health)
	router.POST("/crawl/kepco", handler.CrawlKepco)
	return router
}
