package remotestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gregjones/httpcache"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/subsystems"
)

// API resource paths
const (
	SettingsPath     = "/api/settings"
	ContentPagesPath = "/api/content-pages"
)

// HTTPStore is the subsystems.RemoteStore implementation created by HTTP.
type HTTPStore struct {
	httpClient *http.Client
	baseURI    string
	headers    http.Header
	loggers    ldlog.Loggers
}

func newHTTPStore(httpClient *http.Client, baseURI string, headers http.Header, loggers ldlog.Loggers) *HTTPStore {
	modifiedClient := *httpClient
	modifiedClient.Transport = &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           httpClient.Transport,
	}
	s := &HTTPStore{
		httpClient: &modifiedClient,
		baseURI:    baseURI,
		headers:    headers,
		loggers:    loggers,
	}
	s.loggers.SetPrefix("HTTPStore:")
	return s
}

func resourcePath(kind subsystems.DataKind) (string, error) {
	switch kind {
	case subsystems.Settings:
		return SettingsPath, nil
	case subsystems.ContentPages:
		return ContentPagesPath, nil
	default:
		return "", fmt.Errorf("unknown data kind %q", kind)
	}
}

// GetAll is a standard RemoteStore method.
func (s *HTTPStore) GetAll(ctx context.Context, kind subsystems.DataKind) ([]subsystems.KeyedValue, error) {
	path, err := resourcePath(kind)
	if err != nil {
		return nil, err
	}
	op := "get all " + kind.String()
	body, cached, err := s.makeRequest(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if cached && s.loggers.IsDebugEnabled() {
		s.loggers.Debugf("Response for %s was not modified", path)
	}
	reader := jreader.NewReader(body)
	items := parseRecords(&reader, kind)
	if err := reader.Error(); err != nil {
		return nil, &subsystems.MalformedPayloadError{Source: "remote", Err: err}
	}
	return items, nil
}

// Get is a standard RemoteStore method.
func (s *HTTPStore) Get(ctx context.Context, kind subsystems.DataKind, key string) (ldvalue.Value, error) {
	path, err := resourcePath(kind)
	if err != nil {
		return ldvalue.Null(), err
	}
	op := fmt.Sprintf("get %s/%s", kind, key)
	body, _, err := s.makeRequest(ctx, op, http.MethodGet, path+"/"+url.PathEscape(key), nil)
	if err != nil {
		return ldvalue.Null(), err
	}
	reader := jreader.NewReader(body)
	item, ok := parseRecord(&reader, kind)
	if err := reader.Error(); err != nil {
		return ldvalue.Null(), &subsystems.MalformedPayloadError{Source: "remote", Err: err}
	}
	if !ok {
		return ldvalue.Null(), &subsystems.MalformedPayloadError{
			Source: "remote",
			Err:    fmt.Errorf("response for %s/%s is not a keyed %s record", kind, key, kind),
		}
	}
	return item.Value, nil
}

// Upsert is a standard RemoteStore method.
func (s *HTTPStore) Upsert(ctx context.Context, kind subsystems.DataKind, key string, value ldvalue.Value) error {
	path, err := resourcePath(kind)
	if err != nil {
		return err
	}
	op := fmt.Sprintf("save %s/%s", kind, key)
	_, _, err = s.makeRequest(ctx, op, http.MethodPut, path+"/"+url.PathEscape(key), serializeRecord(kind, key, value))
	return err
}

// IsStoreAvailable is a standard RemoteStoreAvailability method. Any HTTP response at all, even an
// error status, counts as available except for 5xx statuses.
func (s *HTTPStore) IsStoreAvailable(ctx context.Context) bool {
	_, _, err := s.makeRequest(subsystems.WithFreshReads(ctx), "probe", http.MethodGet, SettingsPath, nil)
	if err == nil {
		return true
	}
	var ue *subsystems.UnavailableError
	return errors.As(err, &ue) && ue.StatusCode > 0 && ue.StatusCode < 500
}

// Close is a standard RemoteStore method.
func (s *HTTPStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *HTTPStore) makeRequest(
	ctx context.Context,
	op, method, resource string,
	requestBody []byte,
) ([]byte, bool, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		bodyReader = bytes.NewReader(requestBody)
	}
	req, reqErr := http.NewRequestWithContext(ctx, method, s.baseURI+resource, bodyReader)
	if reqErr != nil {
		return nil, false, reqErr
	}
	url := req.URL.String()

	for k, vv := range s.headers {
		req.Header[k] = vv
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subsystems.IsFreshRead(ctx) {
		req.Header.Set("Cache-Control", "no-cache")
	}

	res, resErr := s.httpClient.Do(req)
	if resErr != nil {
		return nil, false, &subsystems.UnavailableError{Op: op, Err: resErr}
	}

	defer func() {
		_, _ = io.ReadAll(res.Body)
		_ = res.Body.Close()
	}()

	if err := checkForHTTPError(res.StatusCode, url); err != nil {
		if res.StatusCode == http.StatusNotFound && method == http.MethodGet && resource != SettingsPath &&
			resource != ContentPagesPath {
			return nil, false, fmt.Errorf("%w: %s", subsystems.ErrNotFound, err)
		}
		if !isHTTPErrorRecoverable(res.StatusCode) {
			s.loggers.Errorf("Error in %s, which will probably not go away on retry: %s", op, err)
		}
		return nil, false, &subsystems.UnavailableError{Op: op, StatusCode: res.StatusCode, Err: err}
	}

	cached := res.Header.Get(httpcache.XFromCache) != ""

	body, ioErr := io.ReadAll(res.Body)
	if ioErr != nil {
		return nil, false, &subsystems.UnavailableError{Op: op, Err: ioErr}
	}
	return body, cached, nil
}

// parseRecords reads the array returned by a collection resource. Elements without a key are skipped.
func parseRecords(r *jreader.Reader, kind subsystems.DataKind) []subsystems.KeyedValue {
	ret := []subsystems.KeyedValue{}
	for arr := r.Array(); arr.Next(); {
		if item, ok := parseRecord(r, kind); ok {
			ret = append(ret, item)
		}
	}
	return ret
}

// parseRecord reads one record. A setting is {"settingKey": ..., "settingValue": ...} and its value
// is the settingValue; a content page is the page object itself, keyed by its pageId.
func parseRecord(r *jreader.Reader, kind subsystems.DataKind) (subsystems.KeyedValue, bool) {
	var whole ldvalue.Value
	whole.ReadFromJSONReader(r)
	if r.Error() != nil || whole.Type() != ldvalue.ObjectType {
		return subsystems.KeyedValue{}, false
	}
	if kind == subsystems.ContentPages {
		key := whole.GetByKey("pageId").StringValue()
		return subsystems.KeyedValue{Key: key, Value: whole}, key != ""
	}
	key := whole.GetByKey("settingKey").StringValue()
	return subsystems.KeyedValue{Key: key, Value: whole.GetByKey("settingValue")}, key != ""
}

func serializeRecord(kind subsystems.DataKind, key string, value ldvalue.Value) []byte {
	w := jwriter.NewWriter()
	if kind == subsystems.ContentPages {
		value.WriteToJSONWriter(&w)
		return w.Bytes()
	}
	obj := w.Object()
	obj.Name("settingKey").String(key)
	value.WriteToJSONWriter(obj.Name("settingValue"))
	obj.End()
	return w.Bytes()
}
