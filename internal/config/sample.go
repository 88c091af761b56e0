package config

// SampleConfig is written by `checklinks init`. Every value shown is the default.
const SampleConfig = `# checklinks configuration.
# Values may reference environment variables (${VAR}); .env and .env.local
# in the working directory are loaded first.

check:
  # Maximum number of targets validated in parallel.
  concurrency: 16
  # Minimum delay between two requests to the same host.
  per_host_interval: 100ms
  # Timeout of a single HTTP attempt.
  request_timeout: 10s
  # Retries for transient failures (timeouts, resets, 429, 5xx).
  max_retries: 2
  max_redirects: 5
  # Deadline for a whole run; unfinished targets are reported as skipped. 0 disables it.
  run_timeout: 5m
  retry_backoff: exponential
  retry_initial_delay: 500ms
  retry_max_delay: 10s
  # Check #fragment links against headings of local Markdown files.
  follow_local_anchors: true
  # Treat a missing #fragment as broken instead of a warning.
  strict_fragments: false
  # Extra HTTP status codes treated as success. Sites that refuse robots
  # often answer 401, 403 or 406 to reachable pages:
  # accepted_status_codes: [401, 403, 406]
  accepted_status_codes: []
  # Regular expressions; matching links are skipped.
  skip_patterns: []
  max_body_bytes: 5242880
  # Directory that "/absolute" links resolve against (default: working directory).
  root: ""

files:
  # Glob patterns (gitignore syntax). Empty means every supported file type.
  include: []
  exclude: []
  respect_gitignore: true
  hidden: false
  # Maximum depth; 1 scans only files directly under each path, 0 is unlimited.
  max_depth: 0

output:
  format: text # text, json or markdown
  file: ""     # empty writes to stdout
  color: auto  # auto, always or never
  quiet: false

logging:
  level: warn # debug, info, warn or error
  format: text

notify:
  # Publish broken links as JSON events when set, e.g. nats://localhost:4222.
  nats_url: ""
  subject: checklinks.links.broken
  # JetStream stream to publish through (created if missing); empty uses core NATS.
  stream: ""

history:
  # SQLite file recording each run. Empty disables it (monitor uses the XDG data dir).
  path: ""

monitor:
  interval: 1h
  metrics_addr: ":9464"
`
