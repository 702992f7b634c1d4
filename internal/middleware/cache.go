package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/airport-booking/internal/config"
)

// captureWriter records status and body while forwarding to the client.
// Only the first limit bytes are kept; size counts everything written.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if room := cw.limit - cw.size; room > 0 {
		cw.buf.Write(b[:min(int64(len(b)), room)])
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts selected by the key strategy. The request
// path, not the route pattern, takes part so path parameters separate
// entries. The body of non-GET requests always takes part, since report
// filters travel there.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, body []byte) string {
	r := c.Request()
	parts := []string{r.Method, r.URL.Path}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
	case "route_query":
		parts = append(parts, r.URL.RawQuery)
	default: // route_query_role
		parts = append(parts, r.URL.RawQuery, roleName(c))
	}
	if len(body) > 0 {
		parts = append(parts, string(body))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache serves repeated report requests from Redis. Only 200
// responses no larger than MaxBodyBytes are stored; headers are kept so a
// hit is byte-identical to the original response apart from X-Cache.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[strings.ToUpper(req.Method)] {
				return next(c)
			}

			var body []byte
			if req.Body != nil && req.Method != http.MethodGet {
				b, err := io.ReadAll(io.LimitReader(req.Body, maxBody+1))
				if err != nil {
					return next(c)
				}
				if int64(len(b)) > maxBody {
					req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), req.Body))
					return next(c)
				}
				body = b
				req.Body = io.NopCloser(bytes.NewReader(b))
			}

			ctx := req.Context()
			key := cacheKeyFrom(cfg, c, body)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, payload, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(payload)
					return nil
				}
			} else if err != redis.Nil {
				logger.WithError(err).Warn("cache: redis get failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.size > maxBody {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
				logger.WithError(err).Warn("cache: redis set failed")
			}
			return nil
		}
	}
}
