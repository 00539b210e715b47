package util

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	urlPattern         = regexp.MustCompile(`^https?://(www.)?.+\..+$`)
	credentialsPattern = regexp.MustCompile(`\/\/(?P<username>[^:/@]+):[^@]+@`)
)

// WrapKitLoggerDebug routes the engine client's info and trace output to
// the debug level.
type WrapKitLoggerDebug struct {
	log.Logger
}

func (logger WrapKitLoggerDebug) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)
	log.Debugln("[ElasticSearch: Trace] => ", fmt.Sprintf(format, vars...))
}

// WrapKitLoggerError routes the engine client's error output to the error
// level.
type WrapKitLoggerError struct {
	log.Logger
}

func (logger WrapKitLoggerError) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)

	formattedStr := fmt.Sprintf(format, vars...)
	if DebugDeprecationWarns(formattedStr) {
		return
	}

	log.Errorln("[ElasticSearch: Error] => ", formattedStr)
}

// DebugDeprecationWarns logs deprecation warnings at the debug level and
// reports whether formattedStr was one.
func DebugDeprecationWarns(formattedStr string) bool {
	if strings.Contains(strings.ToLower(formattedStr), "deprecation") {
		log.Debug("[ElasticSearch: Trace] => ", formattedStr)
		return true
	}
	return false
}

// cleanSensitiveData masks the password of every URL found in vars.
func cleanSensitiveData(vars []interface{}) {
	for index, passedVar := range vars {
		stringedVar, ok := passedVar.(string)
		if !ok {
			continue
		}
		vars[index] = MaskCredentials(stringedVar)
	}
}

// MaskCredentials replaces the password embedded in a URL with "***".
// Strings that are not URLs are returned unchanged.
func MaskCredentials(s string) string {
	if !urlPattern.MatchString(s) {
		return s
	}
	return credentialsPattern.ReplaceAllString(s, "//${username}:***@")
}
