package middleware

import (
    "bytes"
    "context"
    "encoding/binary"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/harbor-booking/internal/config"
    "github.com/iliyamo/harbor-booking/internal/service"
)

// captureWriter copies the listing body while forwarding it to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if room := cw.limit - cw.buf.Len(); cw.limit <= 0 || room > 0 {
        if cw.limit > 0 && len(b) > room {
            cw.buf.Write(b[:room])
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// overflowed reports whether the body outgrew the capture limit.
func (cw *captureWriter) overflowed(total int64) bool {
    return cw.limit > 0 && total > int64(cw.buf.Len())
}

// scheduleKey names the cache entry of one leg listing.
func scheduleKey(prefix, listing string) string {
    return prefix + ":" + listing
}

// maxAge reads the max-age directive of a Cache-Control header.  It returns
// false when there is none.
func maxAge(h string) (time.Duration, bool) {
    for _, part := range strings.Split(h, ",") {
        part = strings.TrimSpace(part)
        if v, ok := strings.CutPrefix(part, "max-age="); ok {
            n, err := strconv.Atoi(v)
            if err != nil {
                return 0, false
            }
            return time.Duration(n) * time.Second, true
        }
    }
    return 0, false
}

// entryTTL is the configured TTL, shortened to the response's max-age.
func entryTTL(configured time.Duration, header http.Header) time.Duration {
    ttl := configured
    if ttl <= 0 { ttl = 5 * time.Minute }
    if age, ok := maxAge(header.Get("Cache-Control")); ok && age < ttl {
        ttl = age
    }
    return ttl
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    out = append(out, hdrJSON...)
    return append(out, body...), nil
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

// NewScheduleCache caches successful schedule listings in Redis, one entry per
// leg listing (direction, ports, date, passengers), so query parameter order
// and unrelated parameters never split or collide entries.  An entry lives for
// the configured TTL or until the listing's Cache-Control max-age, whichever
// is shorter; a listing answered with max-age=0 is not stored.  Requests the
// listing would reject bypass the cache.
func NewScheduleCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            q, err := service.ParseScheduleQuery(c.QueryParams())
            if err != nil {
                return next(c)
            }
            ctx := c.Request().Context()
            key := scheduleKey(cfg.Prefix, q.Key())

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        // Echo sets the length; the stored max-age no longer holds
                        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Cache-Control") { continue }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflowed(c.Response().Size) {
                return nil
            }
            hdr := c.Response().Header().Clone()
            ttl := entryTTL(cfg.TTL, hdr)
            if ttl <= 0 {
                return nil
            }
            if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
                    c.Logger().Warnf("[cache] store %s: %v", key, err)
                }
            }
            return nil
        }
    }
}
