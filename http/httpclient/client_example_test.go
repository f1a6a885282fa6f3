// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
)

func ExampleNew() {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{})

	c := New(
		LogHandler(h),
	)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	resp, err := c.Get(s.URL)
	if err != nil {
		fmt.Println(err)
		return
	}
	resp.Body.Close()

	dec := json.NewDecoder(&buf)
	for dec.More() {
		var log struct {
			Msg string `json:"msg"`
		}
		err = dec.Decode(&log)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(log.Msg)
	}
	// Output: request sent
	// response received
}

func ExampleNew_named() {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{})

	c := New(
		Name("example"),
		LogHandler(h),
	)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	resp, err := c.Get(s.URL)
	if err != nil {
		fmt.Println(err)
		return
	}
	resp.Body.Close()

	var log struct {
		Name string `json:"http_client"`
		Msg  string `json:"msg"`
	}
	err = json.NewDecoder(&buf).Decode(&log)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(log.Name)
	fmt.Println(log.Msg)
	// Output: example
	// request sent
}
