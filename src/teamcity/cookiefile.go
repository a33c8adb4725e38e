package teamcity

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// FileCookieJar is an http.CookieJar backed by a Netscape cookies.txt file,
// the format browser extensions and curl export. The file is re-read
// whenever its size or modification time changes, so logging in again in
// the browser and re-exporting is enough to refresh the session.
// Cookies set through SetCookies live in memory until the next reload.
type FileCookieJar struct {
	path string

	mu      sync.Mutex
	jar     *cookiejar.Jar
	size    int64
	modTime time.Time
	loadErr error
}

// NewFileCookieJar returns a jar reading path lazily on first use.
func NewFileCookieJar(path string) *FileCookieJar {
	jar, _ := cookiejar.New(nil)
	return &FileCookieJar{path: path, jar: jar}
}

// Cookies returns the cookies to send to u.
func (j *FileCookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.refreshLocked()
	return j.jar.Cookies(u)
}

// SetCookies records cookies from a response for u.
func (j *FileCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

// Err reports the last load failure, if any.
func (j *FileCookieJar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.loadErr
}

func (j *FileCookieJar) refreshLocked() {
	info, err := os.Stat(j.path)
	if err != nil {
		j.loadErr = fmt.Errorf("cookie file: %w", err)
		return
	}
	if info.Size() == j.size && info.ModTime().Equal(j.modTime) {
		return
	}

	jar, err := loadCookieFile(j.path)
	if err != nil {
		j.loadErr = err
		return
	}
	j.jar = jar
	j.size = info.Size()
	j.modTime = info.ModTime()
	j.loadErr = nil
}

// loadCookieFile parses a cookies.txt into a fresh jar. Each line holds
// seven tab-separated fields: domain, include-subdomains, path, secure,
// expiry (unix seconds, 0 for session), name and value.
func loadCookieFile(path string) (*cookiejar.Jar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cookie file: %w", err)
	}
	defer f.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := strings.HasPrefix(line, httpOnlyPrefix)
		if httpOnly {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		} else if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookie file %s:%d: expected 7 fields, got %d", path, lineNo, len(fields))
		}

		host := strings.TrimPrefix(fields[0], ".")
		secure := strings.EqualFold(fields[3], "TRUE")
		cookie := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Secure:   secure,
			HttpOnly: httpOnly,
		}
		if strings.EqualFold(fields[1], "TRUE") {
			cookie.Domain = host
		}
		if expiry, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expiry > 0 {
			cookie.Expires = time.Unix(expiry, 0)
		}

		scheme := "http"
		if secure {
			scheme = "https"
		}
		jar.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: cookie.Path}, []*http.Cookie{cookie})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cookie file %s: %w", path, err)
	}
	return jar, nil
}
