// internal/handlers/scrape.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/brawlrec-backend/internal/utils"
)

// ScrapeTrigger starts a scrape run without waiting for it.
type ScrapeTrigger interface {
	Trigger()
}

type ScrapeHandler struct {
	scrape ScrapeTrigger
}

func NewScrapeHandler(scrape ScrapeTrigger) *ScrapeHandler {
	return &ScrapeHandler{
		scrape: scrape,
	}
}

// POST /v1/scrape
func (h *ScrapeHandler) Trigger(c *gin.Context) {
	h.scrape.Trigger()

	utils.AcceptedResponse(c, gin.H{
		"message": "Scraping started",
	})
}
