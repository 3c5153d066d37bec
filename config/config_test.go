package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/peer-health-adapter/config"
)

var envKeys = []string{
	"SITE_A_HEALTH_URL",
	"SITE_B_HEALTH_URL",
	"PROBE_METHOD",
	"PROBE_TIMEOUT_SEC",
	"VERIFY_TLS",
	"EXTRA_HEADER_KEY",
	"EXTRA_HEADER_VAL",
	"ACCEPT_STATUS_REGEX",
	"CACHE_TTL_SEC",
	"PORT",
	"LOG_LEVEL",
	"ENVIRONMENT",
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())

		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	})

	Describe("Load", func() {
		Context("without any configuration", func() {
			It("should use the defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.SiteAHealthURL).To(BeEmpty())
				Expect(cfg.SiteBHealthURL).To(BeEmpty())
				Expect(cfg.ProbeMethod).To(Equal("GET"))
				Expect(cfg.ProbeTimeout()).To(Equal(3 * time.Second))
				Expect(cfg.VerifyTLS).To(BeTrue())
				Expect(cfg.AcceptStatusRegex).To(Equal(`^2\d\d$`))
				Expect(cfg.CacheTTL()).To(Equal(5 * time.Second))
				Expect(cfg.Port).To(Equal(8000))
				Expect(cfg.Addr()).To(Equal(":8000"))
				Expect(cfg.LogLevel).To(Equal("info"))
				Expect(cfg.Environment).To(Equal("dev"))
			})
		})

		Context("with environment variables", func() {
			It("should read every setting", func() {
				setenv("SITE_A_HEALTH_URL", "  https://site-a.example.com/healthz  ")
				setenv("SITE_B_HEALTH_URL", "http://10.0.0.2:8080/health")
				setenv("PROBE_METHOD", "head")
				setenv("PROBE_TIMEOUT_SEC", "1.5")
				setenv("VERIFY_TLS", "false")
				setenv("EXTRA_HEADER_KEY", "X-Probe-Token")
				setenv("EXTRA_HEADER_VAL", "secret")
				setenv("ACCEPT_STATUS_REGEX", `^3\d\d$`)
				setenv("CACHE_TTL_SEC", "0.25")
				setenv("PORT", "9090")
				setenv("LOG_LEVEL", "DEBUG")
				setenv("ENVIRONMENT", "prod")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.SiteAHealthURL).To(Equal("https://site-a.example.com/healthz"))
				Expect(cfg.Peers()).To(Equal(map[string]string{
					config.PeerA: "https://site-a.example.com/healthz",
					config.PeerB: "http://10.0.0.2:8080/health",
				}))
				Expect(cfg.ProbeMethod).To(Equal("HEAD"))
				Expect(cfg.ProbeTimeout()).To(Equal(1500 * time.Millisecond))
				Expect(cfg.VerifyTLS).To(BeFalse())
				Expect(cfg.ExtraHeaderKey).To(Equal("X-Probe-Token"))
				Expect(cfg.ExtraHeaderVal).To(Equal("secret"))
				Expect(cfg.CacheTTL()).To(Equal(250 * time.Millisecond))
				Expect(cfg.Addr()).To(Equal(":9090"))
				Expect(cfg.LogLevel).To(Equal("debug"))
				Expect(cfg.Environment).To(Equal("prod"))
			})

			It("should allow a zero TTL", func() {
				setenv("CACHE_TTL_SEC", "0")
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.CacheTTL()).To(BeZero())
			})
		})

		Context("with a config file", func() {
			BeforeEach(func() {
				content := `
site_b_health_url: "http://localhost:8081/health"
probe_method: "HEAD"
cache_ttl_sec: 10
port: 8100
`
				Expect(os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644)).To(Succeed())
			})

			It("should load values from the file", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.SiteBHealthURL).To(Equal("http://localhost:8081/health"))
				Expect(cfg.ProbeMethod).To(Equal("HEAD"))
				Expect(cfg.CacheTTL()).To(Equal(10 * time.Second))
				Expect(cfg.Port).To(Equal(8100))
			})

			It("should let the environment override the file", func() {
				setenv("PORT", "8200")
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Port).To(Equal(8200))
			})
		})

		Context("with a .env file", func() {
			It("should export its values before reading the environment", func() {
				content := "SITE_B_HEALTH_URL=http://peer-b.internal/healthz\n"
				Expect(os.WriteFile(filepath.Join(tempDir, ".env"), []byte(content), 0644)).To(Succeed())

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.SiteBHealthURL).To(Equal("http://peer-b.internal/healthz"))
			})

			It("should not override variables already set", func() {
				content := "PORT=7000\n"
				Expect(os.WriteFile(filepath.Join(tempDir, ".env"), []byte(content), 0644)).To(Succeed())
				setenv("PORT", "7100")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Port).To(Equal(7100))
			})
		})

		Context("with invalid settings", func() {
			DescribeTable("should fail at startup",
				func(key, value string) {
					setenv(key, value)
					cfg, err := config.Load()
					Expect(err).To(HaveOccurred())
					Expect(cfg).To(BeNil())
				},
				Entry("malformed acceptance pattern", "ACCEPT_STATUS_REGEX", `^2\d(\d$`),
				Entry("unbalanced acceptance pattern", "ACCEPT_STATUS_REGEX", `9)|(2\d\d`),
				Entry("unsupported method", "PROBE_METHOD", "POST"),
				Entry("zero timeout", "PROBE_TIMEOUT_SEC", "0"),
				Entry("negative timeout", "PROBE_TIMEOUT_SEC", "-1"),
				Entry("negative TTL", "CACHE_TTL_SEC", "-5"),
				Entry("non-numeric TTL", "CACHE_TTL_SEC", "soon"),
				Entry("port out of range", "PORT", "70000"),
				Entry("peer URL without scheme", "SITE_B_HEALTH_URL", "site-b.example.com/health"),
				Entry("peer URL with ftp scheme", "SITE_A_HEALTH_URL", "ftp://site-a.example.com"),
				Entry("header key with spaces", "EXTRA_HEADER_KEY", "X Probe"),
				Entry("unknown log level", "LOG_LEVEL", "verbose"),
				Entry("unknown environment", "ENVIRONMENT", "qa"),
			)
		})
	})

	Describe("ProbeConfig", func() {
		It("should carry the probe settings", func() {
			cfg := &config.Config{
				ProbeMethod:       "HEAD",
				ProbeTimeoutSec:   2,
				VerifyTLS:         true,
				ExtraHeaderKey:    "X-Env",
				ExtraHeaderVal:    "prod",
				AcceptStatusRegex: `^3\d\d$`,
			}

			pc, err := cfg.ProbeConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(pc.Method).To(Equal("HEAD"))
			Expect(pc.Timeout).To(Equal(2 * time.Second))
			Expect(pc.VerifyTLS).To(BeTrue())
			Expect(pc.HeaderKey).To(Equal("X-Env"))
			Expect(pc.HeaderValue).To(Equal("prod"))
			Expect(pc.Acceptance.Accepts(302)).To(BeTrue())
			Expect(pc.Acceptance.Accepts(200)).To(BeFalse())
		})

		It("should fail on a malformed pattern", func() {
			cfg := &config.Config{AcceptStatusRegex: "("}
			_, err := cfg.ProbeConfig()
			Expect(err).To(HaveOccurred())
		})
	})
})
