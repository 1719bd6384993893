package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)
	reDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify 把标题转换为 URL 片段（去掉重音符号）
func Slugify(title string) string {
	if title == "" {
		return ""
	}

	// 1. 分解重音字符后去掉组合符号：é -> e
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(title)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	// 2. 非字母数字替换为连字符
	slug := reNonSlug.ReplaceAllString(b.String(), "-")
	slug = reDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// UniqueSlug 附加短随机后缀，避免同名冲突
func UniqueSlug(title string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	base := Slugify(title)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// ParsePage 解析页码，非法值返回 1
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
