package auth

import (
	"strconv"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/model"
)

// CanMutate reports whether callerID may update or delete article: only a
// signed-in caller who is the article's author may.
func CanMutate(callerID string, article *model.Article) bool {
	if callerID == "" || article == nil {
		return false
	}
	return callerID == article.AuthorID
}

// Authorize is CanMutate as an error. It returns apperror.ErrUnauthorized for
// an anonymous caller and apperror.ErrForbidden for anyone but the author.
func Authorize(callerID string, article *model.Article) error {
	if callerID == "" {
		return apperror.Unauthorized("sign in to modify articles")
	}
	if !CanMutate(callerID, article) {
		if article == nil {
			return apperror.Forbidden("you do not own this article")
		}
		return apperror.Forbidden("you do not own article " + strconv.FormatInt(article.ID, 10))
	}
	return nil
}
