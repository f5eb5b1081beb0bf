package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apiauth "github.com/jon4hz/wanderlust/internal/api/auth"
	"github.com/jon4hz/wanderlust/internal/api/models"
	"github.com/jon4hz/wanderlust/internal/story"
)

func toInput(req models.StoryRequest) story.Input {
	return story.Input{
		Title:           req.Title,
		Text:            req.Story,
		VisitedLocation: req.VisitedLocation,
		VisitedDate:     req.VisitedDate.Time,
		ImageURL:        req.ImageURL,
	}
}

func (h *Handler) AddStory(c *gin.Context) {
	var req models.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	created, err := h.stories.Create(c.Request.Context(), apiauth.UserID(c), toInput(req))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Travel Story Created Successfully",
		"story":   models.ToStory(created, h.config.Gravatar),
	})
}

// GetAllStories returns the shared feed, favourites first.
func (h *Handler) GetAllStories(c *gin.Context) {
	stories, err := h.stories.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"travelStories": models.ToStories(stories, h.config.Gravatar),
	})
}

func (h *Handler) EditStory(c *gin.Context) {
	storyID, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid story ID"})
		return
	}

	var req models.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	updated, err := h.stories.Edit(c.Request.Context(), apiauth.UserID(c), storyID, toInput(req))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Travel Story Updated Successfully",
		"story":   models.ToStory(updated, h.config.Gravatar),
	})
}

func (h *Handler) DeleteStory(c *gin.Context) {
	storyID, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid story ID"})
		return
	}

	if err := h.stories.Delete(c.Request.Context(), apiauth.UserID(c), storyID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Travel Story Deleted Successfully"})
}

// FavouriteStory sets the favourite flag of any story, regardless of its owner.
func (h *Handler) FavouriteStory(c *gin.Context) {
	storyID, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid story ID"})
		return
	}

	var req models.FavouriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFavourite == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "isFavourite is required"})
		return
	}

	updated, err := h.stories.SetFavourite(c.Request.Context(), storyID, *req.IsFavourite)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Story favourite status updated successfully",
		"story":   models.ToStory(updated, h.config.Gravatar),
	})
}

// Search looks through the stories of the authenticated user.
func (h *Handler) Search(c *gin.Context) {
	stories, err := h.stories.Search(c.Request.Context(), apiauth.UserID(c), c.Query("query"))
	if err != nil {
		writeError(c, err)
		return
	}

	if len(stories) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":       "No stories found",
			"travelStories": []models.Story{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"travelStories": models.ToStories(stories, h.config.Gravatar),
	})
}
