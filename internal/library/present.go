package library

import (
	"movieshell/internal/domain"
)

func (s *Service) present(entry domain.Entry) Item {
	item := Item{
		Name:        entry.Name,
		Title:       entry.DisplayTitle(),
		Type:        string(entry.Kind),
		Poster:      s.paths.URL(entry.Poster),
		VideoPath:   s.paths.URL(entry.VideoPath),
		TrailerPath: s.paths.URL(entry.TrailerPath),
		HasVideo:    IsPlayable(entry.VideoPath),
		HasTrailer:  entry.TrailerPath != "",
		Year:        entry.Year,
		Description: entry.Description,
	}
	if sub := s.subtitleFor(entry.VideoPath); sub != "" {
		item.SubtitlePath = s.paths.URL(sub)
		item.HasSubtitles = true
	}
	if entry.Kind == domain.KindSeries {
		index := &SeasonIndex{Seasons: make([]SeasonItem, 0, len(entry.Seasons))}
		for _, season := range entry.Seasons {
			seasonItem := SeasonItem{ID: season.ID, Episodes: make([]EpisodeItem, 0, len(season.Episodes))}
			for _, episode := range season.Episodes {
				seasonItem.Episodes = append(seasonItem.Episodes, s.presentEpisode(episode))
			}
			index.Seasons = append(index.Seasons, seasonItem)
		}
		item.Seasons = index
	}
	return item
}

func (s *Service) presentEpisode(episode domain.Episode) EpisodeItem {
	item := EpisodeItem{
		Name:      episode.Name,
		Title:     episode.Title,
		VideoPath: s.paths.URL(episode.VideoPath),
		Duration:  episode.Duration,
		HasVideo:  IsPlayable(episode.VideoPath),
	}
	if sub := s.subtitleFor(episode.VideoPath); sub != "" {
		item.SubtitlePath = s.paths.URL(sub)
		item.HasSubtitles = true
	}
	return item
}

func (s *Service) subtitleFor(videoPath string) string {
	if s.subtitles == nil {
		return ""
	}
	asset, err := s.paths.CatalogAsset(videoPath)
	if err != nil {
		return ""
	}
	rel, ok := s.subtitles.Resolve(asset.FilePath)
	if !ok {
		return ""
	}
	return rel
}
