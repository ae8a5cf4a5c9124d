package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// authRequired извлекает токен из заголовка Authorization или из cookie
// jwt_token и кладёт Principal в контекст запроса. Без валидного access-токена
// обработчик не вызывается.
func (api *TaskAPI) authRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := ""
		if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
		if tokenString == "" {
			if cookie, err := ctx.Cookie("jwt_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
			return
		}

		claims, err := api.parseToken(tokenString)
		if err != nil || claims.Type == tokenTypeRefresh {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidToken.Error()})
			return
		}

		ctx.Set(principalKey, service.NewPrincipal(claims.UserID, claims.Username))
		ctx.Next()
	}
}

func principalFrom(ctx *gin.Context) (service.Principal, bool) {
	value, exists := ctx.Get(principalKey)
	if !exists {
		return service.Principal{}, false
	}
	p, ok := value.(service.Principal)
	return p, ok
}

type gzipCloser struct {
	io.Reader
	gzipReader io.Closer
	bodyCloser io.Closer
}

func (gc *gzipCloser) Close() error {
	if err := gc.gzipReader.Close(); err != nil {
		_ = gc.bodyCloser.Close()
		return err
	}
	return gc.bodyCloser.Close()
}

// GzipRequestDecompress прозрачно распаковывает тела запросов с
// Content-Encoding: gzip.
func GzipRequestDecompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		encoding := strings.ToLower(ctx.GetHeader("Content-Encoding"))
		if strings.Contains(encoding, "gzip") {
			gr, err := gzip.NewReader(ctx.Request.Body)
			if err != nil {
				ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidGzipRequest.Error()})
				return
			}
			ctx.Request.Body = &gzipCloser{
				Reader:     gr,
				gzipReader: gr,
				bodyCloser: ctx.Request.Body,
			}
			ctx.Request.Header.Del("Content-Encoding")
			ctx.Request.Header.Del("Content-Length")
		}
		ctx.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

// GzipResponseCompress буферизует ответ и отдаёт его сжатым, если клиент
// принимает gzip и тело достаточно большое, чтобы сжатие окупалось.
func GzipResponseCompress() gin.HandlerFunc {
	const minCompressSize = 1024

	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}
		acceptEnc := strings.ToLower(ctx.GetHeader("Accept-Encoding"))
		if !strings.Contains(acceptEnc, "gzip") {
			ctx.Next()
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: ctx.Writer, buf: &bytes.Buffer{}}
		ctx.Writer = gw
		ctx.Next()
		ctx.Writer = gw.ResponseWriter

		body := gw.buf.Bytes()
		writer := gw.ResponseWriter
		if len(body) < minCompressSize || writer.Header().Get("Content-Encoding") != "" {
			_, _ = writer.Write(body)
			return
		}

		writer.Header().Del("Content-Length")
		writer.Header().Set("Content-Encoding", "gzip")
		if vary := writer.Header().Get("Vary"); vary == "" {
			writer.Header().Set("Vary", "Accept-Encoding")
		} else if !strings.Contains(vary, "Accept-Encoding") {
			writer.Header().Set("Vary", vary+", Accept-Encoding")
		}

		zw := gzip.NewWriter(writer)
		if _, err := zw.Write(body); err != nil {
			_ = ctx.Error(errors.ErrGzipCompressionFailed)
		}
		if err := zw.Close(); err != nil {
			_ = ctx.Error(errors.ErrGzipCompressionFailed)
		}
	}
}
