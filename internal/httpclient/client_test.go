package httpclient_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/coordination-registry/internal/httpclient"
)

func TestHTTPClient(t *testing.T) {
	t.Parallel()
	RegisterFailHandler(Fail)
	RunSpecs(t, "HTTPClient Suite")
}

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

var _ = Describe("DefaultClient", func() {
	var (
		client     httpclient.Client
		mockServer *httptest.Server
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = httpclient.NewDefaultClient(30 * time.Second)
	})

	AfterEach(func() {
		if mockServer != nil {
			mockServer.Close()
			mockServer = nil
		}
	})

	Describe("NewDefaultClient", func() {
		It("should use default timeout when zero is provided", func() {
			Expect(httpclient.NewDefaultClient(0)).NotTo(BeNil())
		})
	})

	Describe("Get", func() {
		Context("Successful requests", func() {
			BeforeEach(func() {
				mockServer = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					Expect(r.Header.Get("User-Agent")).To(Equal(httpclient.UserAgent))
					Expect(r.Header.Get("Accept")).To(Equal("application/json"))

					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte(`{"status": "UP"}`))
				}))
			})

			It("should successfully fetch data", func() {
				data, err := client.Get(ctx, mockServer.URL)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte(`{"status": "UP"}`)))
			})
		})

		Context("HTTP error responses", func() {
			DescribeTable("should return a transient error carrying the status code",
				func(status int) {
					mockServer = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
						w.WriteHeader(status)
					}))

					_, err := client.Get(ctx, mockServer.URL)
					Expect(err).To(HaveOccurred())
					Expect(err).To(MatchError(httpclient.ErrTransientIO))
					Expect(httpclient.StatusCode(err)).To(Equal(status))
					Expect(err.Error()).To(ContainSubstring(fmt.Sprintf("HTTP %d", status)))
				},
				Entry("404 Not Found", http.StatusNotFound),
				Entry("500 Internal Server Error", http.StatusInternalServerError),
				Entry("503 Service Unavailable", http.StatusServiceUnavailable),
				Entry("304 Not Modified", http.StatusNotModified),
			)
		})

		Context("Network errors", func() {
			It("should handle invalid URL", func() {
				_, err := client.Get(ctx, "://invalid-url")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to create request"))
				Expect(err).NotTo(MatchError(httpclient.ErrTransientIO))
			})

			It("should treat an unreachable host as transient", func() {
				_, err := client.Get(ctx, "http://invalid-host-does-not-exist.local:9999")
				Expect(err).To(HaveOccurred())
				Expect(err).To(MatchError(httpclient.ErrTransientIO))
				Expect(err.Error()).To(ContainSubstring("failed to execute request"))
			})
		})

		Context("Timeouts", func() {
			BeforeEach(func() {
				mockServer = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					time.Sleep(500 * time.Millisecond)
					w.WriteHeader(http.StatusOK)
				}))
			})

			It("should fail when the client timeout elapses", func() {
				short := httpclient.NewDefaultClient(50 * time.Millisecond)
				_, err := short.Get(ctx, mockServer.URL)
				Expect(err).To(MatchError(httpclient.ErrTransientIO))
			})

			It("should respect context timeout", func() {
				timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()

				_, err := client.Get(timeoutCtx, mockServer.URL)
				Expect(err).To(MatchError(httpclient.ErrTransientIO))
			})
		})

		Context("Response body handling", func() {
			It("should reject response exceeding the size limit via Content-Length", func() {
				mockServer = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Length", fmt.Sprintf("%d", httpclient.MaxResponseSize+1))
					w.WriteHeader(http.StatusOK)
				}))

				_, err := client.Get(ctx, mockServer.URL)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("exceeds maximum allowed size"))
			})

			It("should handle empty response body", func() {
				mockServer = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				}))

				data, err := client.Get(ctx, mockServer.URL)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(BeEmpty())
			})
		})
	})

	Describe("Methods with bodies", func() {
		var received chan string

		BeforeEach(func() {
			received = make(chan string, 1)
			router := chi.NewRouter()
			record := func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				body, err := io.ReadAll(r.Body)
				Expect(err).NotTo(HaveOccurred())
				received <- r.Method + " " + r.URL.Path + " " + string(body)
				w.WriteHeader(http.StatusCreated)
			}
			router.Post("/status", record)
			router.Put("/subscriptions/{id}", record)
			router.Delete("/subscriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
				received <- r.Method + " " + r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			})
			mockServer = newTestServer(router)
		})

		It("should POST a JSON body", func() {
			_, err := client.Post(ctx, mockServer.URL+"/status", []byte(`{"status":"ENABLED"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(<-received).To(Equal(`POST /status {"status":"ENABLED"}`))
		})

		It("should PUT a JSON body", func() {
			_, err := client.Put(ctx, mockServer.URL+"/subscriptions/job-1", []byte(`{}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(<-received).To(Equal(`PUT /subscriptions/job-1 {}`))
		})

		It("should DELETE", func() {
			Expect(client.Delete(ctx, mockServer.URL+"/subscriptions/job-1")).To(Succeed())
			Expect(<-received).To(Equal("DELETE /subscriptions/job-1"))
		})

		It("should fail for unrouted paths", func() {
			_, err := client.Post(ctx, mockServer.URL+"/elsewhere", []byte(`{}`))
			Expect(httpclient.StatusCode(err)).To(Equal(http.StatusNotFound))
		})
	})
})
