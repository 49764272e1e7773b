// Package http holds the small request and response helpers used by
// framework and host endpoint plugins.
//
//	func (e *HelloEndpoints) hello(w http.ResponseWriter, r *http.Request) {
//	    req := gohttp.NewRequest(r)
//	    gohttp.NewResponse(w, r).Success(map[string]any{
//	        "message": e.greeter.Greet(req.Query("name", "world")),
//	    })
//	}
package http
