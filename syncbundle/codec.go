package syncbundle

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"gopkg.in/ghodss/yaml.v1"

	"github.com/sitesync/go-site-settings/stores"
)

// Marshal serializes a bundle as JSON. Object keys are written in sorted order at every level, so
// the same bundle always produces the same bytes.
//
//	{
//	  "exportedAt": "2026-01-02T03:04:05Z",
//	  "formatVersion": 1,
//	  "pages": { "home": { "pageId": "home", "pageName": "Home", "sections": [...] } },
//	  "settings": { "footer_settings": {...}, "logo_settings": {...} }
//	}
func Marshal(b Bundle) ([]byte, error) {
	pages := make(map[string]ldvalue.Value, len(b.Pages))
	for id, page := range b.Pages {
		value, err := checkPage(id, page)
		if err != nil {
			return nil, fmt.Errorf("page %q: %w", id, err)
		}
		pages[id] = value
	}
	version := b.FormatVersion
	if version == 0 {
		version = CurrentFormatVersion
	}

	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("exportedAt").String(b.ExportedAt.UTC().Format(time.RFC3339Nano))
	obj.Name("formatVersion").Int(version)
	if b.Pages != nil {
		writeSortedMap(obj.Name("pages"), pages)
	}
	if b.Settings != nil {
		writeSortedMap(obj.Name("settings"), b.Settings)
	}
	obj.End()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeSortedMap(w *jwriter.Writer, items map[string]ldvalue.Value) {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := w.Object()
	for _, k := range keys {
		writeSorted(obj.Name(k), items[k])
	}
	obj.End()
}

func writeSorted(w *jwriter.Writer, value ldvalue.Value) {
	switch value.Type() {
	case ldvalue.ObjectType:
		keys := value.Keys(nil)
		sort.Strings(keys)
		obj := w.Object()
		for _, k := range keys {
			writeSorted(obj.Name(k), value.GetByKey(k))
		}
		obj.End()
	case ldvalue.ArrayType:
		arr := w.Array()
		for i := 0; i < value.Count(); i++ {
			writeSorted(w, value.GetByIndex(i))
		}
		arr.End()
	default:
		value.WriteToJSONWriter(w)
	}
}

// Parse reads a bundle from JSON or YAML. A document is treated as JSON if its first non-space
// character is '{'. The exportedAt property is required, as is at least one of settings and pages.
// All failures are reported as *MalformedBundleError.
func Parse(data []byte) (Bundle, error) {
	if !detectJSON(data) {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return Bundle{}, &MalformedBundleError{Reason: "not valid JSON or YAML", Err: err}
		}
		data = converted
	}

	var b Bundle
	var exportedAt string
	var logo ldvalue.Value
	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "formatVersion":
			b.FormatVersion = r.Int()
		case "exportedAt":
			exportedAt = r.String()
		case "settings":
			b.Settings = readValueMap(&r)
		case "pages":
			b.Pages = readValueMap(&r)
		case "logoSettings":
			logo.ReadFromJSONReader(&r)
		default:
			_ = r.SkipValue()
		}
	}
	if err := r.Error(); err != nil {
		return Bundle{}, &MalformedBundleError{Reason: "invalid document", Err: err}
	}

	if exportedAt == "" {
		return Bundle{}, &MalformedBundleError{Reason: "missing exportedAt"}
	}
	t, err := time.Parse(time.RFC3339Nano, exportedAt)
	if err != nil {
		return Bundle{}, &MalformedBundleError{Reason: "invalid exportedAt", Err: err}
	}
	b.ExportedAt = t
	if b.FormatVersion == 0 {
		b.FormatVersion = CurrentFormatVersion
	}
	if b.FormatVersion > CurrentFormatVersion {
		return Bundle{}, &MalformedBundleError{Reason: fmt.Sprintf("unsupported format version %d", b.FormatVersion)}
	}
	if !logo.IsNull() {
		if b.Settings == nil {
			b.Settings = make(map[string]ldvalue.Value)
		}
		if _, ok := b.Settings[stores.LogoSettingKey]; !ok {
			b.Settings[stores.LogoSettingKey] = logo
		}
	}
	for id, value := range b.Pages {
		page, err := checkPage(id, value)
		if err != nil {
			return Bundle{}, &MalformedBundleError{Reason: fmt.Sprintf("invalid page %q", id), Err: err}
		}
		b.Pages[id] = page
	}
	if b.Settings == nil && b.Pages == nil {
		return Bundle{}, &MalformedBundleError{Reason: "bundle has neither settings nor pages"}
	}
	return b, nil
}

// readValueMap reads an object of arbitrary values. It returns nil for a JSON null.
func readValueMap(r *jreader.Reader) map[string]ldvalue.Value {
	obj := r.ObjectOrNull()
	if !obj.IsDefined() {
		return nil
	}
	ret := make(map[string]ldvalue.Value)
	for obj.Next() {
		var value ldvalue.Value
		value.ReadFromJSONReader(r)
		ret[string(obj.Name())] = value
	}
	return ret
}

func detectJSON(rawData []byte) bool {
	// A bundle must be an object, i.e. it must start with '{'
	return strings.HasPrefix(strings.TrimLeftFunc(string(rawData), unicode.IsSpace), "{")
}
