package library

import (
	"bytes"
	"encoding/json"
)

// SeasonIndex keeps seasons and episodes in catalog order and marshals to
// the catalog's nested shape:
// {"<season>": {"episodes": {"<episode>": {...}}}}.
type SeasonIndex struct {
	Seasons []SeasonItem
}

func (s SeasonIndex) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, season := range s.Seasons {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, season.ID); err != nil {
			return nil, err
		}
		buf.WriteString(`{"episodes":{`)
		for j, episode := range season.Episodes {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, episode.Name); err != nil {
				return nil, err
			}
			raw, err := json.Marshal(episode)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteString("}}")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte(':')
	return nil
}

// Episodes flattens the index in order.
func (s *SeasonIndex) Episodes() []EpisodeItem {
	if s == nil {
		return nil
	}
	var out []EpisodeItem
	for _, season := range s.Seasons {
		out = append(out, season.Episodes...)
	}
	return out
}
