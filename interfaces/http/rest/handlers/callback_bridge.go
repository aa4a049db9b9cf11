package handlers

import "net/http"

// callbackBridgePage moves the fragment parameters into the query string
// and reloads the callback. It interpolates nothing from the request.
const callbackBridgePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="referrer" content="no-referrer">
<title>MindTrack - Signing in</title>
</head>
<body>
<p>Processing authentication, please wait...</p>
<script>
(function () {
  var params = new URLSearchParams(window.location.hash.substring(1));
  params.set("bridged", "1");
  window.location.replace(window.location.pathname + "?" + params.toString());
})();
</script>
</body>
</html>
`

func serveCallbackBridge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(callbackBridgePage))
}
