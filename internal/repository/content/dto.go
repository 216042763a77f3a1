package content

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/domain"
)

// Hash field names. Double-underscore fields carry the payload; the rest are
// indexed metadata.
const (
	fieldContent   = "__content"
	fieldVector    = "__vector"
	fieldOwnerID   = "owner_id"
	fieldScopeID   = "scope_id"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// buildHashFields flattens a record into a map for HSET. Vectors are stored
// as packed little-endian float32, timestamps as unix milliseconds.
func buildHashFields(rec *domain.ContentRecord) map[string]string {
	return map[string]string{
		fieldContent:   rec.Text,
		fieldVector:    vectorToBytes(rec.Embedding),
		fieldOwnerID:   rec.OwnerID,
		fieldScopeID:   rec.ScopeID,
		fieldCreatedAt: strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10),
		fieldUpdatedAt: strconv.FormatInt(rec.UpdatedAt.UnixMilli(), 10),
	}
}

// parseHashFields reconstructs a record from its flat hash map.
func parseHashFields(id string, m map[string]string) domain.ContentRecord {
	return domain.ContentRecord{
		ID:        id,
		OwnerID:   m[fieldOwnerID],
		ScopeID:   m[fieldScopeID],
		Text:      m[fieldContent],
		Embedding: parseStoredVector(m[fieldVector]),
		CreatedAt: parseMillis(m[fieldCreatedAt]),
		UpdatedAt: parseMillis(m[fieldUpdatedAt]),
	}
}

// parseStoredVector handles both storage encodings: packed binary float32
// (the native format) and a bracketed text form ("[0.1, 0.2]") left behind
// by older writers.
func parseStoredVector(s string) []float32 {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		return domain.ParseVector(s)
	}
	return bytesToVector(s)
}

func parseMillis(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
