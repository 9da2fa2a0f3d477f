// Command testsigner runs a standalone fake signature service for manual
// end-to-end testing. It receives posted SignRequests, simulates signer
// authentication of a canned user, signs every sign task and posts the
// SignResponse back to the requester's return URL via an auto-submitting
// form.
// Usage: go run ./cmd/testsigner
package main

import (
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
	"github.com/idsec-solutions/signservice-integration-sub001/testfixtures/signservice"
)

var postBackTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html>
<body onload="document.forms[0].submit()">
<form method="POST" action="{{.Action}}">
<input type="hidden" name="RelayState" value="{{.RelayState}}"/>
<input type="hidden" name="EidSignResponse" value="{{.SignResponse}}"/>
<noscript><input type="submit" value="Continue"/></noscript>
</form>
</body>
</html>`))

func main() {
	port := flag.Int("port", 9070, "Port to listen on")
	certOut := flag.String("cert-out", "", "Write the service certificate as PEM to this file (for trust-anchor configuration)")
	flag.Parse()

	responder, err := signservice.NewResponder()
	if err != nil {
		log.Fatalf("Failed to create responder: %v", err)
	}

	if *certOut != "" {
		block := &pem.Block{Type: "CERTIFICATE", Bytes: responder.Certificate().Raw}
		if err := os.WriteFile(*certOut, pem.EncodeToMemory(block), 0o644); err != nil {
			log.Fatalf("Failed to write certificate: %v", err)
		}
		log.Printf("Wrote service certificate to %s", *certOut)
	}

	http.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		encoded := r.PostFormValue("EidSignRequest")
		if encoded == "" {
			http.Error(w, "no EidSignRequest", http.StatusBadRequest)
			return
		}

		env, err := protocol.DecodeSignRequestEnvelope(encoded)
		if err != nil {
			log.Printf("Rejected request: %v", err)
			http.Error(w, "malformed SignRequest", http.StatusBadRequest)
			return
		}

		response, relay, err := responder.Respond(env, signservice.ResponseOptions{Sign: true})
		if err != nil {
			log.Printf("Failed to answer request %s: %v", env.Message().RequestID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		returnURL := returnURLOf(env)
		if returnURL == "" {
			http.Error(w, "request names no return URL", http.StatusBadRequest)
			return
		}
		log.Printf("Signed request %s, posting back to %s", env.Message().RequestID, returnURL)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = postBackTemplate.Execute(w, map[string]string{
			"Action":       returnURL,
			"RelayState":   relay,
			"SignResponse": response,
		})
	})

	http.HandleFunc("/cert", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-pem-file")
		_ = pem.Encode(w, &pem.Block{Type: "CERTIFICATE", Bytes: responder.Certificate().Raw})
	})

	log.Printf("Test signature service starting on http://localhost:%d", *port)
	log.Printf("  Sign endpoint: http://localhost:%d/sign", *port)
	log.Printf("  Certificate:   http://localhost:%d/cert", *port)
	printSubject(responder.Certificate())

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// returnURLOf extracts the audience of the request conditions, which is
// where the response must be posted.
func returnURLOf(env *protocol.SignRequestEnvelope) string {
	ext := env.Message().OptionalInputs.SignRequestExtension
	if ext == nil || ext.Conditions == nil {
		return ""
	}
	for _, restriction := range ext.Conditions.AudienceRestrictions {
		if restriction.Audience.Value != "" {
			return restriction.Audience.Value
		}
	}
	return ""
}

func printSubject(cert *x509.Certificate) {
	log.Printf("  Signing as:    %s", cert.Subject.CommonName)
}
