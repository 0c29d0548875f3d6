package main

import (
	"net/http"
	"time"

	goahttp "goa.design/goa/v3/http"
)

func newDoer(timeout time.Duration, debug bool) goahttp.Doer {
	var (
		doer goahttp.Doer
	)
	{
		doer = &http.Client{Timeout: timeout}
		if debug {
			doer = goahttp.NewDebugDoer(doer)
		}
	}
	return doer
}
