// Package demoapp is a small application server over a store.Store. It is
// the downstream application the cache layer is exercised against: every
// GET response carries an ETag derived from the underlying content, plus
// the other validator headers the middleware captures.
package demoapp

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/etagcache/etagcache/store"

	"github.com/go-chi/chi/v5"
	"github.com/munnerz/goautoneg"
	"github.com/rs/zerolog"
)

// ErrNotAcceptable is returned by Negotiate when no offered media type
// satisfies the Accept header.
var ErrNotAcceptable = errors.New("no acceptable media type")

// DefaultMediaType is the representation served absent negotiation.
const DefaultMediaType = "text/plain"

var offeredTypes = []string{"text/plain", "application/json"}

// Negotiate resolves the response media type from the Accept header.
func Negotiate(r *http.Request) (string, error) {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return DefaultMediaType, nil
	}
	mediaType := goautoneg.Negotiate(accept, offeredTypes)
	if mediaType == "" {
		return "", ErrNotAcceptable
	}
	return mediaType, nil
}

// Principal returns the caller identity from the X-Principal header.
// An empty return means anonymous.
func Principal(r *http.Request) string {
	return r.Header.Get("X-Principal")
}

type app struct {
	store store.Store
	log   zerolog.Logger
}

// New returns the demo application handler backed by st.
func New(st store.Store, logger zerolog.Logger) http.Handler {
	a := &app{store: st, log: logger}
	r := chi.NewRouter()
	r.Route("/containers", func(r chi.Router) {
		r.Get("/", a.listContainers)
		r.Route("/{container}", func(r chi.Router) {
			r.Get("/", a.getContainer)
			r.Put("/", a.putContainer)
			r.Delete("/", a.deleteContainer)
			r.Get("/items", a.listItems)
			r.Route("/items/{item}", func(r chi.Router) {
				r.Get("/", a.getItem)
				r.Put("/", a.putItem)
				r.Delete("/", a.deleteItem)
			})
		})
	})
	r.Route("/composites", func(r chi.Router) {
		r.Get("/", a.listComposites)
		r.Route("/{composite}", func(r chi.Router) {
			r.Get("/", a.getComposite)
			r.Put("/", a.putComposite)
			r.Delete("/", a.deleteComposite)
			r.Get("/items", a.listCompositeItems)
		})
	})
	r.Get("/search", a.search)
	return r
}

func (a *app) listContainers(w http.ResponseWriter, r *http.Request) {
	names, err := a.store.Containers(r.Context())
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.sendNames(w, r, names)
}

func (a *app) getContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "container")
	items, err := a.store.Items(r.Context(), name)
	if err != nil {
		a.sendError(w, err)
		return
	}
	mediaType, ok := a.negotiated(w, r)
	if !ok {
		return
	}
	setValidators(w, listETag(mediaType, itemVersions(items)...))
	switch mediaType {
	case "application/json":
		writeJSON(w, mediaType, map[string]any{"name": name, "items": len(items)})
	default:
		writeText(w, mediaType, name)
	}
}

func (a *app) putContainer(w http.ResponseWriter, r *http.Request) {
	if err := a.store.PutContainer(r.Context(), chi.URLParam(r, "container")); err != nil {
		a.serverError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) deleteContainer(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteContainer(r.Context(), chi.URLParam(r, "container")); err != nil {
		a.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.Items(r.Context(), chi.URLParam(r, "container"))
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendItems(w, r, items)
}

func (a *app) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := a.store.Item(r.Context(), chi.URLParam(r, "container"), chi.URLParam(r, "item"))
	if err != nil {
		a.sendError(w, err)
		return
	}
	mediaType, ok := a.negotiated(w, r)
	if !ok {
		return
	}
	setValidators(w, itemETag(it, mediaType))
	w.Header().Set("Last-Modified", it.Modified.Format(http.TimeFormat))
	w.Header().Set("Content-Location", r.URL.Path)
	switch mediaType {
	case "application/json":
		writeJSON(w, mediaType, it)
	default:
		writeText(w, mediaType, it.Text)
	}
}

func (a *app) putItem(w http.ResponseWriter, r *http.Request) {
	it := store.Item{
		Container: chi.URLParam(r, "container"),
		Name:      chi.URLParam(r, "item"),
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.serverError(w, err)
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var decoded struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		it.Text = decoded.Text
	} else {
		it.Text = string(body)
	}
	if _, err := a.store.PutItem(r.Context(), it); err != nil {
		a.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) deleteItem(w http.ResponseWriter, r *http.Request) {
	err := a.store.DeleteItem(r.Context(), chi.URLParam(r, "container"), chi.URLParam(r, "item"))
	if err != nil {
		a.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) listComposites(w http.ResponseWriter, r *http.Request) {
	names, err := a.store.Composites(r.Context())
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.sendNames(w, r, names)
}

func (a *app) getComposite(w http.ResponseWriter, r *http.Request) {
	c, err := a.store.Composite(r.Context(), chi.URLParam(r, "composite"))
	if err != nil {
		a.sendError(w, err)
		return
	}
	mediaType, ok := a.negotiated(w, r)
	if !ok {
		return
	}
	setValidators(w, listETag(mediaType, c.Refs...))
	switch mediaType {
	case "application/json":
		writeJSON(w, mediaType, c)
	default:
		writeText(w, mediaType, strings.Join(c.Refs, "\n"))
	}
}

func (a *app) putComposite(w http.ResponseWriter, r *http.Request) {
	c := store.Composite{Name: chi.URLParam(r, "composite")}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.serverError(w, err)
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, &c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.Name = chi.URLParam(r, "composite")
	} else if text := strings.TrimSpace(string(body)); text != "" {
		c.Refs = strings.Split(text, "\n")
	}
	if err := a.store.PutComposite(r.Context(), c); err != nil {
		a.serverError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) deleteComposite(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteComposite(r.Context(), chi.URLParam(r, "composite")); err != nil {
		a.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listCompositeItems lists the items of every container the composite
// references. Containers that no longer exist are skipped.
func (a *app) listCompositeItems(w http.ResponseWriter, r *http.Request) {
	c, err := a.store.Composite(r.Context(), chi.URLParam(r, "composite"))
	if err != nil {
		a.sendError(w, err)
		return
	}
	var items []store.Item
	for _, ref := range c.Refs {
		held, err := a.store.Items(r.Context(), ref)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			a.serverError(w, err)
			return
		}
		items = append(items, held...)
	}
	a.sendItems(w, r, items)
}

func (a *app) search(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.sendItems(w, r, items)
}

func (a *app) sendNames(w http.ResponseWriter, r *http.Request, names []string) {
	mediaType, ok := a.negotiated(w, r)
	if !ok {
		return
	}
	setValidators(w, listETag(mediaType, names...))
	switch mediaType {
	case "application/json":
		writeJSON(w, mediaType, names)
	default:
		writeText(w, mediaType, strings.Join(names, "\n"))
	}
}

func (a *app) sendItems(w http.ResponseWriter, r *http.Request, items []store.Item) {
	mediaType, ok := a.negotiated(w, r)
	if !ok {
		return
	}
	setValidators(w, listETag(mediaType, itemVersions(items)...))
	switch mediaType {
	case "application/json":
		writeJSON(w, mediaType, items)
	default:
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Name
		}
		writeText(w, mediaType, strings.Join(names, "\n"))
	}
}

// negotiated resolves the media type or answers 406.
func (a *app) negotiated(w http.ResponseWriter, r *http.Request) (string, bool) {
	mediaType, err := Negotiate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotAcceptable)
		return "", false
	}
	return mediaType, true
}

func (a *app) sendError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	a.serverError(w, err)
}

func (a *app) serverError(w http.ResponseWriter, err error) {
	a.log.Error().Err(err).Msg("Store operation failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// setValidators sets the headers the cache layer captures. The
// no-transform directive mimics an outer layer injecting it; the
// middleware strips it again before storage.
func setValidators(w http.ResponseWriter, etag string) {
	w.Header().Set("Etag", etag)
	w.Header().Set("Vary", "Accept")
	w.Header().Set("Cache-Control", "no-transform, max-age=0")
}

// itemETag derives a strong validator for one item representation.
func itemETag(it store.Item, mediaType string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d:%s", it.Container, it.Name, it.Revision, mediaType)))
	return fmt.Sprintf("\"%s/%d;%x\"", it.Name, it.Revision, sum[:4])
}

// listETag derives a validator for a listing from the versions of its
// members.
func listETag(mediaType string, parts ...string) string {
	sum := sha256.Sum256([]byte(mediaType + "\x00" + strings.Join(parts, "\x00")))
	return fmt.Sprintf("\"%x\"", sum[:8])
}

func itemVersions(items []store.Item) []string {
	versions := make([]string, len(items))
	for i, it := range items {
		versions[i] = fmt.Sprintf("%s/%s/%d", it.Container, it.Name, it.Revision)
	}
	return versions
}

func writeText(w http.ResponseWriter, mediaType, body string) {
	w.Header().Set("Content-Type", mediaType+"; charset=utf-8")
	io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, mediaType string, v any) {
	w.Header().Set("Content-Type", mediaType)
	json.NewEncoder(w).Encode(v)
}
