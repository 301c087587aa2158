package remotestore

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/sitesync/go-site-settings/subsystems"
)

// fakeSettingsAPI is an in-memory imitation of the settings HTTP API.
type fakeSettingsAPI struct {
	settings map[string]json.RawMessage
	pages    map[string]json.RawMessage
	etag     string
	lock     sync.Mutex
}

func newFakeSettingsAPI() *fakeSettingsAPI {
	return &fakeSettingsAPI{
		settings: make(map[string]json.RawMessage),
		pages:    make(map[string]json.RawMessage),
	}
}

func (f *fakeSettingsAPI) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/settings", f.listSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/{key}", f.getSetting).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/{key}", f.putSetting).Methods(http.MethodPut)
	r.HandleFunc("/api/content-pages", f.listPages).Methods(http.MethodGet)
	r.HandleFunc("/api/content-pages/{id}", f.getPage).Methods(http.MethodGet)
	r.HandleFunc("/api/content-pages/{id}", f.putPage).Methods(http.MethodPut)
	return r
}

func (f *fakeSettingsAPI) setSetting(key, valueJSON string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.settings[key] = json.RawMessage(`{"settingKey":"` + key + `","settingValue":` + valueJSON + `}`)
}

func (f *fakeSettingsAPI) setPage(id, pageJSON string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.pages[id] = json.RawMessage(pageJSON)
}

// stored returns the raw JSON the API holds for a record, or nil.
func (f *fakeSettingsAPI) stored(kind subsystems.DataKind, key string) []byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	if kind == subsystems.ContentPages {
		return f.pages[key]
	}
	return f.settings[key]
}

// useETag makes list responses carry an ETag, and answer 304 to a matching If-None-Match.
func (f *fakeSettingsAPI) useETag(etag string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.etag = etag
}

func (f *fakeSettingsAPI) listSettings(w http.ResponseWriter, r *http.Request) {
	f.writeList(w, r, f.settings)
}

func (f *fakeSettingsAPI) listPages(w http.ResponseWriter, r *http.Request) {
	f.writeList(w, r, f.pages)
}

func (f *fakeSettingsAPI) getSetting(w http.ResponseWriter, r *http.Request) {
	f.writeOne(w, f.settings, mux.Vars(r)["key"])
}

func (f *fakeSettingsAPI) getPage(w http.ResponseWriter, r *http.Request) {
	f.writeOne(w, f.pages, mux.Vars(r)["id"])
}

func (f *fakeSettingsAPI) putSetting(w http.ResponseWriter, r *http.Request) {
	f.put(w, r, f.settings, mux.Vars(r)["key"])
}

func (f *fakeSettingsAPI) putPage(w http.ResponseWriter, r *http.Request) {
	f.put(w, r, f.pages, mux.Vars(r)["id"])
}

func (f *fakeSettingsAPI) writeList(w http.ResponseWriter, r *http.Request, items map[string]json.RawMessage) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.etag != "" {
		if r.Header.Get("If-None-Match") == f.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", f.etag)
		w.Header().Set("Cache-Control", "max-age=0")
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, string(items[k]))
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[" + strings.Join(parts, ",") + "]"))
}

func (f *fakeSettingsAPI) writeOne(w http.ResponseWriter, items map[string]json.RawMessage, key string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	data, ok := items[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (f *fakeSettingsAPI) put(w http.ResponseWriter, r *http.Request, items map[string]json.RawMessage, key string) {
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.lock.Lock()
	items[key] = json.RawMessage(body)
	f.lock.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
