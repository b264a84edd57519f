package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

type handler struct {
	backend Backend
	logger  *log.Logger
}

// fail writes err as {"detail": ...} with the status it carries.
func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	detail := err.Error()

	var rerr *remote.Error
	if errors.As(err, &rerr) {
		if rerr.Status != 0 {
			status = rerr.Status
		}
		detail = rerr.Detail()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, remote.ErrorBody{Detail: detail})
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": "Chronicle API",
		"version": Version,
		"endpoints": gin.H{
			"characters": "/api/characters",
			"edits":      "/api/edits",
			"demo":       "/api/demo/load",
		},
		"stats": h.backend.Stats(),
	})
}

func (h *handler) createCharacter(c *gin.Context) {
	var draft story.CharacterDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusUnprocessableEntity, remote.ErrorBody{Detail: "invalid character: " + err.Error()})
		return
	}
	res, err := h.backend.CreateCharacter(requestContext(c), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) getCharacter(c *gin.Context) {
	char, err := h.backend.Character(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, char)
}

func (h *handler) getScenes(c *gin.Context) {
	scenes, err := h.backend.Scenes(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, scenes)
}

func (h *handler) submitEdit(c *gin.Context) {
	var req remote.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, remote.ErrorBody{Detail: "invalid edit request: " + err.Error()})
		return
	}
	if req.CharacterID == "" || req.SceneID == "" || req.Command == "" {
		c.JSON(http.StatusUnprocessableEntity, remote.ErrorBody{Detail: "characterId, sceneId and command are required"})
		return
	}
	res, err := h.backend.SubmitEdit(requestContext(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) recap(c *gin.Context) {
	recap, err := h.backend.Recap(requestContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, remote.RecapResult{Recap: recap})
}

func (h *handler) deleteCharacter(c *gin.Context) {
	msg, err := h.backend.DeleteCharacter(requestContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, remote.MessageResult{Message: msg})
}

func (h *handler) loadDemo(c *gin.Context) {
	res, err := h.backend.LoadDemo(requestContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
