package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "requestID"
	HeaderRequestID = "X-Request-Id"
	// BodyKey holds the decoded request body, if any.
	BodyKey = "body"
)

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func accessLog(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		c.Next()
		logger.With(
			zap.String("requestID", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(now)),
		).Infof("access")
	}
}

// bodyParser decodes JSON and URL-encoded bodies on every route and stores
// the result under BodyKey. Other content types pass through untouched.
func bodyParser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		switch c.ContentType() {
		case binding.MIMEJSON:
			var body map[string]interface{}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.Set(BodyKey, body)
		case binding.MIMEPOSTForm:
			if err := c.Request.ParseForm(); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			body := make(map[string]interface{}, len(c.Request.PostForm))
			for k, v := range c.Request.PostForm {
				body[k] = v[0]
			}
			c.Set(BodyKey, body)
		}
		c.Next()
	}
}
