package api

import (
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/mux"
)

// WriteRoutes walks through all routes registered in the router and writes
// them as a table.
func WriteRoutes(w io.Writer, r *mux.Router) error {
	fmt.Fprintln(w, "=== Registered Routes ===")
	fmt.Fprintln(w, "METHOD\tPATH")
	fmt.Fprintln(w, "-------------------------------")

	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		if route.GetHandler() == nil {
			// Subrouter prefixes carry no handler of their own.
			return nil
		}

		// If no methods are specified, assume all methods
		methodStr := "ANY"
		if methods, err := route.GetMethods(); err == nil && len(methods) > 0 {
			methodStr = strings.Join(methods, ",")
		}
		fmt.Fprintf(w, "%s\t%s\n", methodStr, pathTemplate)
		return nil
	})
	fmt.Fprintln(w, "==============================")
	return err
}
