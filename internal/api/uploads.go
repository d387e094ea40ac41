package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"myapi/internal/auth"
)

const multipartMemoryBytes = 1 << 20

// readRegisterForm parses a multipart or urlencoded registration form. Field
// names match case-insensitively.
func readRegisterForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (auth.RegisterInput, func(), bool) {
	noop := func() {}
	if maxBytes > 0 {
		// Room for a base64 avatar plus the other fields.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes*4/3+multipartMemoryBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var err error
	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(multipartMemoryBytes)
	case "application/x-www-form-urlencoded":
		err = parseURLEncodedForm(r)
	default:
		err = r.ParseForm()
	}
	if err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "Request exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid registration form")
		}
		return auth.RegisterInput{}, noop, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	input := auth.RegisterInput{
		Email:     formValue(r, "email"),
		Password:  formValue(r, "password"),
		FirstName: formValue(r, "firstName"),
		LastName:  formValue(r, "lastName"),
		Avatar: auth.AvatarSource{
			Base64: formValue(r, "imageBase64"),
			URL:    formValue(r, "imageUrl"),
		},
	}

	file, err := readFormFile(r, "imageFile", maxBytes)
	if err != nil {
		cleanup()
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "Image exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid image upload")
		}
		return auth.RegisterInput{}, noop, false
	}
	input.Avatar.File = file

	return input, cleanup, true
}

// parseURLEncodedForm reads the body directly; ParseForm stops at 10 MB,
// which is less than a base64 avatar at the upload limit.
func parseURLEncodedForm(r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("parsing form body: %w", err)
	}
	r.PostForm = values
	r.Form = values
	return nil
}

func formValue(r *http.Request, key string) string {
	if v := r.Form.Get(key); v != "" {
		return v
	}
	for k, values := range r.Form {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func readFormFile(r *http.Request, key string, maxBytes int64) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	for k, headers := range r.MultipartForm.File {
		if !strings.EqualFold(k, key) || len(headers) == 0 {
			continue
		}
		if maxBytes > 0 && headers[0].Size > maxBytes {
			return nil, &http.MaxBytesError{Limit: maxBytes}
		}

		file, err := headers[0].Open()
		if err != nil {
			return nil, fmt.Errorf("opening uploaded file: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading uploaded file: %w", err)
		}
		return data, nil
	}

	return nil, nil
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "request body too large") || strings.Contains(msg, "post too large")
}
