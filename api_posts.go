package folio

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/store"
)

type postsResponse struct {
	Posts []store.Post `json:"posts"`
}

type postResponse struct {
	Message string     `json:"message"`
	Post    store.Post `json:"post"`
}

type updatePostRequest struct {
	ID string `json:"id"`
	store.PostUpdate
}

// handleAPIPosts serves the list and the two single-post reads.
func (a *App) handleAPIPosts(c echo.Context) error {
	ctx := c.Request().Context()
	admin := a.IsAdmin(c)

	if id := strings.TrimSpace(c.QueryParam("id")); id != "" {
		if !admin {
			return jsonMessage(c, http.StatusUnauthorized, "Unauthorized")
		}
		doc, err := a.Store.GetPostByID(ctx, id)
		if err != nil {
			return apiError(c, err, "Post not found")
		}
		return c.JSON(http.StatusOK, doc)
	}

	if slug := strings.TrimSpace(c.QueryParam("slug")); slug != "" {
		if admin {
			doc, err := a.Store.GetPostBySlug(ctx, slug)
			if err != nil {
				return apiError(c, err, "Post not found")
			}
			return c.JSON(http.StatusOK, doc)
		}
		cp, err := a.Cache.GetPost(ctx, slug)
		if err != nil {
			return apiError(c, err, "Post not found")
		}
		return c.JSON(http.StatusOK, cp.Document)
	}

	var (
		posts []store.Post
		err   error
	)
	if admin {
		posts, err = a.Store.ListPosts(ctx)
	} else {
		posts, err = a.Cache.ListPosts(ctx, c.QueryParam("tag"))
	}
	if err != nil {
		return apiError(c, err, "Post not found")
	}
	if posts == nil {
		posts = []store.Post{}
	}
	return c.JSON(http.StatusOK, postsResponse{Posts: posts})
}

func (a *App) handleAPICreatePost(c echo.Context, p Principal) error {
	var in store.NewPost
	if err := c.Bind(&in); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	post, err := a.Store.CreatePost(c.Request().Context(), in)
	if err != nil {
		return apiError(c, err, "Post not found")
	}
	a.Cache.Invalidate()
	logPostChange("post created", p, post)
	return c.JSON(http.StatusCreated, postResponse{Message: "Post created successfully", Post: post})
}

func (a *App) handleAPIUpdatePost(c echo.Context, p Principal) error {
	var in updatePostRequest
	if err := c.Bind(&in); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(in.ID) == "" {
		return jsonMessage(c, http.StatusBadRequest, "Post ID is required")
	}
	post, err := a.Store.UpdatePost(c.Request().Context(), in.ID, in.PostUpdate)
	if err != nil {
		return apiError(c, err, "Post not found")
	}
	a.Cache.Invalidate()
	logPostChange("post updated", p, post)
	return c.JSON(http.StatusOK, postResponse{Message: "Post updated successfully", Post: post})
}

func (a *App) handleAPIDeletePost(c echo.Context, p Principal) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return jsonMessage(c, http.StatusBadRequest, "Post ID is required")
	}
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		return apiError(c, err, "Post not found")
	}
	a.Cache.Invalidate()
	logPostChange("post deleted", p, store.Post{ID: id})
	return jsonMessage(c, http.StatusOK, "Post deleted successfully")
}
