package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/meal"
	"github.com/fitcoach/coachapi/pkg/middleware"
)

// createMealRequest は食事プラン作成リクエストのJSON構造。
type createMealRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Category    string `json:"category"`
}

// handleListMeals は食事プランを返す。?category= で絞り込める。
func (s *Server) handleListMeals() gin.HandlerFunc {
	return func(c *gin.Context) {
		meals, err := s.meals.List(c.Request.Context(), c.Query("category"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"meals": s.toMealResponses(c, meals),
			"total": len(meals),
		})
	}
}

// handleSearchMeals はキーワードで食事プランを検索する。
func (s *Server) handleSearchMeals() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		category := c.Query("category")
		meals, err := s.meals.Search(c.Request.Context(), query, category)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"meals":    s.toMealResponses(c, meals),
			"total":    len(meals),
			"query":    query,
			"category": optional(category),
		})
	}
}

// handleGetMeal は食事プランを1件返す。
func (s *Server) handleGetMeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		mealID, ok := paramID(c, "id")
		if !ok {
			return
		}
		m, err := s.meals.Get(c.Request.Context(), mealID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"meal": s.toMealResponse(c, m)})
	}
}

// handleCreateMeal は食事プランを作成する。JSONとmultipartの両方を受け付ける。
func (s *Server) handleCreateMeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req meal.CreateRequest

		if isMultipart(c) {
			if _, err := c.MultipartForm(); err != nil {
				formError(c, err)
				return
			}
			req.Title = c.PostForm("title")
			req.Description = c.PostForm("description")
			req.Link = c.PostForm("link")
			req.Category = c.PostForm("category")

			image, err := c.FormFile("image")
			if err != nil && !errors.Is(err, http.ErrMissingFile) {
				formError(c, err)
				return
			}
			if image != nil {
				ref, err := s.uploads.Save(image)
				if err != nil {
					s.respondError(c, apperr.Wrap(apperr.KindInternal, "failed to store image", err))
					return
				}
				req.ImagePath = ref
			}
		} else {
			var body createMealRequest
			if err := c.ShouldBindJSON(&body); err != nil {
				badRequest(c, "invalid request body")
				return
			}
			req = meal.CreateRequest{
				Title:       body.Title,
				Description: body.Description,
				Link:        body.Link,
				Category:    body.Category,
			}
		}

		id, _ := middleware.GetIdentity(c)
		m, err := s.meals.Create(c.Request.Context(), id, req)
		if err != nil {
			s.discardUpload(c, req.ImagePath)
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Meal created successfully",
			"meal":    s.toMealResponse(c, m),
		})
	}
}

// handleDeleteMeal は食事プランと画像を削除する。
func (s *Server) handleDeleteMeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		mealID, ok := paramID(c, "id")
		if !ok {
			return
		}
		id, _ := middleware.GetIdentity(c)
		if err := s.meals.Delete(c.Request.Context(), id, mealID); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Meal deleted successfully"})
	}
}
