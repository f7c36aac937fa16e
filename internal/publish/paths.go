package publish

import (
	"path"
	"strings"
)

const indexFile = "index.html"

// RegattaRoot is the directory holding every page of a regatta.
func RegattaRoot(season, nick string) string {
	return "/" + season + "/" + nick + "/"
}

func schoolRoot(url string) string     { return "/schools/" + url + "/" }
func conferenceRoot(url string) string { return "/conferences/" + url + "/" }
func sailorRoot(url string) string     { return "/sailors/" + url + "/" }

func burgeePath(schoolID string) string { return "/inc/img/schools/" + schoolID + ".png" }
func filePath(name string) string       { return "/inc/" + strings.TrimPrefix(name, "/") }

const (
	homePath           = "/index.html"
	notFoundPath       = "/404.html"
	schoolNotFoundPath = "/schools/404.html"
)

func seasonSummaryPath(season string) string { return "/" + season + "/" + indexFile }

// pageDir returns the tree that holds an index page.
func pageDir(p string) string {
	if strings.HasSuffix(p, "/"+indexFile) {
		return strings.TrimSuffix(p, indexFile)
	}
	return p
}

func joinPage(base string, parts ...string) string {
	elems := append([]string{base}, parts...)
	elems = append(elems, indexFile)
	return path.Join(elems...)
}
