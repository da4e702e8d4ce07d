// Package http wraps net/http requests and responses with the JSON helpers
// the admin endpoints use.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
//	    if req.Query("state") == "" {
//	        res.Error(http.StatusBadRequest, "state is required")
//	        return
//	    }
//	    res.Success(map[string]any{"ok": true})
//	}
//
// Success wraps the payload as {"data": ...}. Errors are {"message": ...}
// and Invalid adds an "errors" list to a 422 response.
package http
