package service

import (
	"strings"
)

// Open311 is the flattened, per-locale-suffixed representation published on
// the open311 services listing. Localized fields expand into one key per
// locale, so the shape is dynamic.
type Open311 map[string]any

// ToOpen311 converts a service into its Open311 form. The default locale
// value lands under the bare key ("service_name"), every other locale under a
// suffixed key ("service_name_sw"). Empty values are omitted entirely.
func (s *Service) ToOpen311(defaultLocale string) Open311 {
	o := Open311{
		"service_code": s.Code,
		"metadata":     false,
		"type":         "realtime",
		"keywords":     s.keywords(defaultLocale),
	}

	for k, v := range s.Name.Flatten("service_name", defaultLocale) {
		o[k] = v
	}
	for k, v := range s.Description.Flatten("description", defaultLocale) {
		o[k] = v
	}
	if s.Group != nil {
		for k, v := range s.Group.Name.Flatten("group", defaultLocale) {
			o[k] = v
		}
	}

	return o
}

// keywords joins the distinct name values of the service and its group,
// service first, into a comma separated list.
func (s *Service) keywords(defaultLocale string) string {
	var words []string
	seen := make(map[string]struct{})

	add := func(values []string) {
		for _, v := range values {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			words = append(words, v)
		}
	}

	add(s.Name.Values(defaultLocale))
	if s.Group != nil {
		add(s.Group.Name.Values(defaultLocale))
	}

	return strings.Join(words, ",")
}
