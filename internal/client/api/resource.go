// Package api binds the PhotoTrack REST API: a generic Resource client per
// entity type over a URL template, plus the HTTP transport it runs on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/phototrack-admin/internal/middleware"
	"github.com/atinyakov/phototrack-admin/internal/models"
	"github.com/google/uuid"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Params fill the :Name placeholders of a URL template.
type Params map[string]string

// Resource maps CRUD verbs to REST calls against one URL template, e.g.
// "http://api/sites/:Uuid". The template's last placeholder names the
// identifier field of T in JSON.
type Resource[T any] struct {
	client   Doer
	template string
	idParam  string
}

// NewResource returns a Resource for the given URL template. The identifier
// placeholder and JSON field is models.IDField.
func NewResource[T any](client Doer, template string) *Resource[T] {
	return &Resource[T]{client: client, template: template, idParam: models.IDField}
}

// Query issues a GET on the collection selected by params and returns the
// JSON array unmodified. A null or empty answer yields an empty slice.
func (r *Resource[T]) Query(ctx context.Context, params Params) ([]T, error) {
	var items []T
	if err := r.do(ctx, http.MethodGet, expand(r.template, params), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get fetches one entity by identifier.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	err := r.do(ctx, http.MethodGet, r.itemURL(id), nil, &item)
	return item, err
}

// Save POSTs entity, without its identifier, to the collection URL and
// returns the submitted entity carrying the identifier assigned by the API.
func (r *Resource[T]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	payload, err := r.payload(entity)
	if err != nil {
		return zero, err
	}

	var answer map[string]any
	if err := r.do(ctx, http.MethodPost, expand(r.template, nil), payload, &answer); err != nil {
		return zero, err
	}

	id := createdID(answer, r.idParam)
	if id == "" {
		return zero, fmt.Errorf("%w: no identifier in answer to POST %s", ErrInvalidResponse, expand(r.template, nil))
	}
	return r.withID(payload, id)
}

// Update PUTs entity, with its identifier field stripped from the payload,
// to the URL of id and returns the entity carrying id.
func (r *Resource[T]) Update(ctx context.Context, id string, entity T) (T, error) {
	var zero T
	payload, err := r.payload(entity)
	if err != nil {
		return zero, err
	}
	if err := r.do(ctx, http.MethodPut, r.itemURL(id), payload, nil); err != nil {
		return zero, err
	}
	return r.withID(payload, id)
}

// Remove DELETEs the entity with the given identifier.
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, r.itemURL(id), nil, nil)
}

func (r *Resource[T]) itemURL(id string) string {
	return expand(r.template, Params{r.idParam: id})
}

// payload converts entity to a JSON object without the identifier field.
func (r *Resource[T]) payload(entity T) (map[string]any, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("encode entity: %T is not a JSON object", entity)
	}
	delete(m, r.idParam)
	return m, nil
}

func (r *Resource[T]) withID(payload map[string]any, id string) (T, error) {
	var item T
	m := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		m[k] = v
	}
	m[r.idParam] = id

	raw, err := json.Marshal(m)
	if err != nil {
		return item, fmt.Errorf("decode entity: %w", err)
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode entity: %w", err)
	}
	return item, nil
}

// do performs one JSON round trip. body and out may be nil.
func (r *Resource[T]) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := middleware.GetRequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(middleware.RequestIDHeader, requestID)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, target, err)
	}
	return nil
}

// createdID extracts the identifier from the answer to a POST. The API
// answers {"SiteId": ...}, {"UserId": ...} or {"PhotoId": ...}; an answer
// carrying the identifier field itself is accepted too.
func createdID(answer map[string]any, idParam string) string {
	if s, ok := answer[idParam].(string); ok && s != "" {
		return s
	}
	for k, v := range answer {
		if s, ok := v.(string); ok && s != "" && strings.HasSuffix(k, "Id") {
			return s
		}
	}
	return ""
}

// expand substitutes :Name placeholders of template with path-escaped
// params. A placeholder without a value is dropped along with its leading
// slash, so "/sites/:Uuid" expands to "/sites".
func expand(template string, params Params) string {
	schemeEnd := strings.Index(template, "://")
	prefix, path := "", template
	if schemeEnd >= 0 {
		rest := template[schemeEnd+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return template
		}
		prefix = template[:schemeEnd+3+slash]
		path = rest[slash:]
	}

	segments := strings.Split(path, "/")
	out := segments[:0]
	for _, seg := range segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			value := params[name]
			if value == "" {
				continue
			}
			seg = url.PathEscape(value)
		}
		out = append(out, seg)
	}
	return prefix + strings.Join(out, "/")
}
