package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/juju/clock"
	jujuerrors "github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/schollz/progressbar/v3"
)

// StatusError is a non-200 HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downloading %s: bad status: %s", e.URL, e.Status)
}

// Options configures a Downloader.
type Options struct {
	Client   *http.Client
	Attempts int
	Delay    time.Duration
	// Progress draws a progress bar on stderr for each download.
	Progress bool
	// Keyring, when non-empty, is used by FetchVerified.
	Keyring openpgp.EntityList
	Clock   clock.Clock
}

// Downloader fetches files over HTTP(S) with bounded retries.
type Downloader struct {
	client   *http.Client
	attempts int
	delay    time.Duration
	progress bool
	keyring  openpgp.EntityList
	clock    clock.Clock
}

// NewDownloader returns a Downloader, filling unset options with defaults.
func NewDownloader(opts Options) *Downloader {
	d := &Downloader{
		client:   opts.Client,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		progress: opts.Progress,
		keyring:  opts.Keyring,
		clock:    opts.Clock,
	}
	if d.client == nil {
		d.client = NewSecureHTTPClient()
	}
	if d.attempts < 1 {
		d.attempts = 1
	}
	if d.delay <= 0 {
		d.delay = time.Second
	}
	if d.clock == nil {
		d.clock = clock.WallClock
	}
	return d
}

// Fetch downloads url to dest with the given mode. The file appears at
// dest only once it is complete.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, mode os.FileMode) error {
	log := logger.Logger()

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return d.fetchOnce(ctx, url, dest, mode)
		},
		IsFatalError: isFatalDownloadError,
		NotifyFunc: func(err error, attempt int) {
			log.Warnf("attempt %d downloading %s failed: %v", attempt, url, err)
		},
		Attempts: d.attempts,
		Delay:    d.delay,
		Clock:    d.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		return downloadError(ctx, url, err)
	}
	log.Debugf("Downloaded %s to %s", url, dest)
	return nil
}

// FetchVerified downloads url to dest and, when a keyring is configured,
// checks it against the armored detached signature at url+".asc". A file
// that fails verification is removed.
func (d *Downloader) FetchVerified(ctx context.Context, url, dest string, mode os.FileMode) error {
	if err := d.Fetch(ctx, url, dest, mode); err != nil {
		return err
	}
	if len(d.keyring) == 0 {
		return nil
	}

	sigPath := dest + ".asc"
	defer os.Remove(sigPath)
	if err := d.Fetch(ctx, url+".asc", sigPath, 0600); err != nil {
		os.Remove(dest)
		return fmt.Errorf("fetching signature for %s: %w", url, err)
	}
	if err := VerifyDetachedSignature(d.keyring, dest, sigPath); err != nil {
		os.Remove(dest)
		return err
	}
	logger.Logger().Infof("Verified signature of %s", path.Base(url))
	return nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string, mode os.FileMode) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	var w io.Writer = tmp
	if d.progress {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", path.Base(url))),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
		defer bar.Finish()
		w = io.MultiWriter(tmp, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

// downloadError unpacks what retry.Call returned into the error of the
// last attempt, keeping its chain intact.
func downloadError(ctx context.Context, url string, err error) error {
	if retry.IsRetryStopped(err) && ctx.Err() != nil {
		return fmt.Errorf("downloading %s: %w (last error: %v)", url, ctx.Err(), retry.LastError(err))
	}
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		return retry.LastError(err)
	}
	// fatal errors come back traced
	return jujuerrors.Cause(err)
}

func isFatalDownloadError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// 4xx will not get better by asking again
		return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
	}
	return false
}
