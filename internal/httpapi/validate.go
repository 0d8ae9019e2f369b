package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strings"
)

// form is the normalized request body: JSON objects and multipart forms both
// end up here, so one set of rules covers either encoding.
type form struct {
	values map[string]any
	file   *formFile
}

// formFile is an uploaded image from a multipart request.
type formFile struct {
	Name        string
	ContentType string
	Data        []byte
}

const maxUploadBytes = 10 << 20

// parseForm reads the request body into a form. An absent or empty body is
// not an error here; emptiness is a validation rule so the response carries
// the proper field-error shape.
func parseForm(r *http.Request) (*form, error) {
	f := &form{values: make(map[string]any)}

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("malformed multipart body")
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				f.values[k] = vs[0]
			}
		}
		if fhs := r.MultipartForm.File["image"]; len(fhs) > 0 {
			fh := fhs[0]
			file, err := fh.Open()
			if err != nil {
				return nil, errors.New("unreadable image upload")
			}
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, errors.New("unreadable image upload")
			}
			f.file = &formFile{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			}
		}
		return f, nil
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&f.values); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, errors.New("malformed JSON body")
	}
	return f, nil
}

func (f *form) empty() bool {
	return len(f.values) == 0 && f.file == nil
}

func (f *form) has(field string) bool {
	_, ok := f.values[field]
	return ok
}

// str returns the field as a string. ok is false when the field is absent or
// carries a non-string JSON value.
func (f *form) str(field string) (string, bool) {
	v, ok := f.values[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// --- rules ---

// check inspects one field of a form. A non-nil fieldError fails validation;
// a non-nil error is an internal failure (store unreachable) and maps to 500.
type check func(ctx context.Context, f *form, field string) (*fieldError, error)

type rule struct {
	field  string
	checks []check
}

func field(name string, checks ...check) rule {
	return rule{field: name, checks: checks}
}

// bodyNotEmpty guards against a fully empty submission. When it fails, it is
// the only error returned: per-field rules would all fail too and add noise.
func bodyNotEmpty(msg string) rule {
	return rule{checks: []check{func(_ context.Context, f *form, _ string) (*fieldError, error) {
		if f.empty() {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}}}
}

// runRules evaluates rules in declaration order. Each field contributes at
// most its first failing check.
func runRules(ctx context.Context, f *form, rules []rule) ([]fieldError, error) {
	var errs []fieldError
	for _, r := range rules {
		for _, c := range r.checks {
			fe, err := c(ctx, f, r.field)
			if err != nil {
				return nil, err
			}
			if fe == nil {
				continue
			}
			if fe.Field == "" {
				fe.Field = r.field
			}
			if r.field == "" {
				// body-level rule short-circuits everything else
				return []fieldError{*fe}, nil
			}
			errs = append(errs, *fe)
			break
		}
	}
	return errs, nil
}

func required(msg string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		s, ok := f.str(field)
		if !ok || strings.TrimSpace(s) == "" {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}
}

// isString passes when the field is absent; presence with a non-string value
// fails. Used for optional fields.
func isString(msg string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		if !f.has(field) {
			return nil, nil
		}
		if _, ok := f.str(field); !ok {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}
}

// notEmptyIfPresent is the partial-update variant of required: an omitted
// field is fine, an explicitly empty or non-string one is not.
func notEmptyIfPresent(msg string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		if !f.has(field) {
			return nil, nil
		}
		s, ok := f.str(field)
		if !ok || strings.TrimSpace(s) == "" {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}
}

func emailShaped(msg string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		s, ok := f.str(field)
		if !ok || s == "" {
			return nil, nil
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || !strings.Contains(s, "@") {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}
}

func minLen(n int, msg string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		s, ok := f.str(field)
		if !ok || s == "" {
			return nil, nil
		}
		if len(s) < n {
			return &fieldError{Msg: msg}, nil
		}
		return nil, nil
	}
}

func oneOf(msg string, allowed ...string) check {
	return func(_ context.Context, f *form, field string) (*fieldError, error) {
		s, ok := f.str(field)
		if !f.has(field) {
			return nil, nil
		}
		if !ok {
			return &fieldError{Msg: msg}, nil
		}
		for _, a := range allowed {
			if s == a {
				return nil, nil
			}
		}
		return &fieldError{Msg: msg}, nil
	}
}
