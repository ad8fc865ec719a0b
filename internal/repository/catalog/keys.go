package catalog

import (
	"strconv"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Key patterns, for prefix p:
//
//	{p}venue:{id} {p}event:{id} {p}promotion:{id} {p}performer:{id} {p}location:{id}
//	{p}idx:venue  {p}idx:event  {p}idx:promotion  {p}idx:location
type keys struct {
	prefix string
}

func (k keys) entity(kind entity.Kind, id int64) string {
	return k.prefix + string(kind) + ":" + strconv.FormatInt(id, 10)
}

func (k keys) location(id int64) string {
	return k.prefix + "location:" + strconv.FormatInt(id, 10)
}

func (k keys) kindPrefix(kind string) string {
	return k.prefix + kind + ":"
}

func (k keys) index(kind string) string {
	return k.prefix + "idx:" + kind
}

func (k keys) entities(kind entity.Kind, ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = k.entity(kind, id)
	}
	return out
}
