// Package handler contains the HTTP request handlers of the notes API.
//
// WHAT IS A HANDLER?
// Anything that implements http.Handler:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// or, more commonly, an http.HandlerFunc. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, JSON body, caller ID from the context)
//  2. Call the service layer
//  3. Write the response through writeJSON / writeError
//
// Handlers hold no business rules. Each one depends on a small interface
// declared next to it, so the tests drive them with fakes.
package handler
