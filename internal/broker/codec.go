package broker

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// jsonIndent matches the wire format of the original broker: four-space
// pretty printing.
const jsonIndent = "    "

// Respond serializes body per the media type negotiated for this request.
// A non-textual body negotiated down to text/plain (with no per-call
// override in play) is itself a bad request.
func Respond(w http.ResponseWriter, r *http.Request, status int, body any, headers map[string]string) {
	if Negotiated(r.Context()) == MediaText {
		text, ok := scalarText(body)
		if !ok {
			WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "response not representable as text/plain"))
			return
		}
		writeText(w, status, text, headers)
		return
	}
	RespondJSON(w, status, body, headers)
}

// RespondJSON writes body as pretty-printed JSON regardless of negotiation.
func RespondJSON(w http.ResponseWriter, status int, body any, headers map[string]string) {
	buf, err := json.MarshalIndent(normalize(body), "", jsonIndent)
	if err != nil {
		WriteError(w, domainerrors.Wrap(err, domainerrors.CodeInternal, "response encoding failed"))
		return
	}
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", MediaJSON)
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// RespondText forces text/plain output, the per-call override the value
// endpoints use. Compound values render as their JSON encoding.
func RespondText(w http.ResponseWriter, status int, body any, headers map[string]string) {
	text, ok := scalarText(body)
	if !ok {
		buf, err := json.Marshal(normalize(body))
		if err != nil {
			WriteError(w, domainerrors.Wrap(err, domainerrors.CodeInternal, "response encoding failed"))
			return
		}
		text = string(buf)
	}
	writeText(w, status, text, headers)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError translates a domain error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	buf, _ := json.MarshalIndent(map[string]string{
		"error":       string(code),
		"description": domainerrors.MessageOf(err),
	}, "", jsonIndent)
	w.Header().Set("Content-Type", MediaJSON)
	w.WriteHeader(domainerrors.ToHTTPStatus(code))
	_, _ = w.Write(buf)
}

// normalize rewrites BSON documents into plain maps and slices so
// encoding/json renders them as JSON objects rather than key/value pair
// arrays.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		out := make(map[string]any, len(t))
		for _, elem := range t {
			out[elem.Key] = normalize(elem.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []bson.D:
		out := make([]any, len(t))
		for i, doc := range t {
			out[i] = normalize(doc)
		}
		return out
	}
	return v
}

func writeText(w http.ResponseWriter, status int, text string, headers map[string]string) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", MediaText)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// scalarText renders a scalar as its text/plain form. The second return is
// false for compound values.
func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "null", true
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int32, int64:
		return fmt.Sprintf("%d", s), true
	case float32:
		return strconv.FormatFloat(float64(s), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), true
	}
	return "", false
}

// DecodeJSONBody parses a JSON request body into an attribute document.
func DecodeJSONBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid request body")
	}
	return body, nil
}

// DecodeJSONValue parses a JSON request body that may be any JSON value,
// not only an object. The attribute endpoints accept bare scalars.
func DecodeJSONValue(r *http.Request) (any, error) {
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid request body")
	}
	return body, nil
}

// ReadTextBody reads a text/plain request body, which must be non-empty.
func ReadTextBody(r *http.Request) (string, error) {
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid request body")
	}
	if len(buf) == 0 {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "empty request body")
	}
	return string(buf), nil
}

// IsTextRequest reports whether the request body was declared text/plain.
func IsTextRequest(r *http.Request) bool {
	mediaType := r.Header.Get("Content-Type")
	for i := 0; i < len(mediaType); i++ {
		if mediaType[i] == ';' {
			mediaType = mediaType[:i]
			break
		}
	}
	return mediaType == MediaText
}
