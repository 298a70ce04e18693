package rest

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/autovagas/autovagas/internal/core"
)

// Search queries the board's listing endpoint and returns every page,
// stamping each job with the platform name and retrieval time.
func (a *Adapter) Search(ctx context.Context, params *core.JobSearchParams) ([]*core.Job, error) {
	if params.PerPage == "" {
		// Largest page the boards allow. Fewer round trips.
		params.PerPage = defaultPerPage
	}

	q := buildParams(params)
	apiURLSearch := fmt.Sprintf("%s%s", a.APIURL, searchPath)

	items, err := a.GetItems(ctx, apiURLSearch, q)
	if err != nil {
		return nil, err
	}

	var jobs []*core.Job
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &jobs,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	now := time.Now()
	for _, job := range jobs {
		job.Platform = a.name
		job.RetrievedAt = now
	}

	return jobs, nil
}

// buildParams maps JobSearchParams fields onto query parameters using the
// `param` struct tag.
func buildParams(params *core.JobSearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		key := field.Tag.Get("param")
		if key == "" {
			continue
		}

		value := reflect.ValueOf(params).Elem().FieldByIndex(field.Index).Interface()
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			s := fmt.Sprintf("%v", v)
			if s != "" && s != "false" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
