package transport

import (
	"html/template"
	"net/http"

	"github.com/goliatone/go-connect/core"
)

const (
	messageTypeSuccess = "oauthComplete/success"
	messageTypeError   = "oauthComplete/error"
)

// completionPage is served at the end of an OAuth hop. The embedded
// script posts the outcome to the opener window at the stored
// targetOrigin and offers to close the popup. When no opener or origin
// is available the page degrades to the static text.
var completionPage = template.Must(template.New("oauth_complete").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<p>{{.Heading}}</p>
<button type="button" onclick="window.close()">Close window</button>
<script>
(function () {
  var message = {{.Message}};
  var targetOrigin = {{.TargetOrigin}};
  if (window.opener && targetOrigin) {
    window.opener.postMessage(message, targetOrigin);
  }
})();
</script>
</body>
</html>
`))

// genericErrorPage is the uniform browser response for anything the
// dispatcher rejected. It carries no detail, so an expired token and an
// unknown aggregator render identically.
var genericErrorPage = template.Must(template.New("oauth_error").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Error</title>
</head>
<body>
<p>Error</p>
<p>Something went wrong completing the connection. You can close this window and try again.</p>
<button type="button" onclick="window.close()">Close window</button>
</body>
</html>
`))

type completionPageData struct {
	Title        string
	Heading      string
	TargetOrigin string
	Message      map[string]any
}

func renderCompletionPage(w http.ResponseWriter, result core.InboundResult) {
	messageType := messageTypeSuccess
	heading := "Connection complete. You can close this window."
	if result.Outcome.Status != core.ConnectionStatusConnected {
		messageType = messageTypeError
		heading = "The connection did not complete. You can close this window."
	}

	metadata := map[string]any{
		"aggregator":   result.Metadata["aggregator"],
		"connectionId": result.Outcome.ConnectionID,
		"sessionId":    result.Metadata["session_id"],
		"status":       string(result.Outcome.Status),
	}
	if result.Outcome.Reason != "" {
		metadata["reason"] = result.Outcome.Reason
	}

	targetOrigin, _ := result.Metadata["target_origin"].(string)
	data := completionPageData{
		Title:        "Connection complete",
		Heading:      heading,
		TargetOrigin: targetOrigin,
		Message: map[string]any{
			"type":     messageType,
			"metadata": metadata,
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := completionPage.Execute(w, data); err != nil {
		// Headers are already out; nothing recoverable remains.
		return
	}
}

func renderGenericErrorPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = genericErrorPage.Execute(w, nil)
}
