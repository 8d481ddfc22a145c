package search

import (
	"context"
	"errors"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/erikbos/wavesync/player"
)

const (
	idField          = "id"
	titleField       = "title"
	artistField      = "artist"
	artistExactField = "artist_exact"
	thumbnailField   = "thumbnail"
)

// Index is an in-memory bleve index of every track the server has seen.
type Index struct {
	index bleve.Index
}

// document is what we store in bleve per track.
type document struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	// ArtistExact is helper field to make exact artist match more accurate
	ArtistExact string `json:"artist_exact"`
	Thumbnail   string `json:"thumbnail"`
}

func newDocument(t player.Track) document {
	return document{
		ID:          t.VideoID,
		Title:       t.Title,
		Artist:      t.Artist,
		ArtistExact: strings.ToLower(strings.TrimSpace(t.Artist)),
		Thumbnail:   t.Thumbnail,
	}
}

// NewIndex creates a new in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// titles and artists come in many languages, so no stemming
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.Index = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	stored := bleve.NewTextFieldMapping()
	stored.Store = true
	stored.Index = false

	doc.AddFieldMappingsAt(idField, keyword)
	doc.AddFieldMappingsAt(titleField, text)
	doc.AddFieldMappingsAt(artistField, text)
	doc.AddFieldMappingsAt(artistExactField, keyword)
	doc.AddFieldMappingsAt(thumbnailField, stored)

	m.DefaultMapping = doc
	return m
}

// Add indexes or updates tracks in a single batch.
func (i *Index) Add(ctx context.Context, tracks ...player.Track) error {
	batch := i.index.NewBatch()
	for _, t := range tracks {
		if t.VideoID == "" {
			continue
		}
		if err := batch.Index(t.VideoID, newDocument(t)); err != nil {
			return err
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	return i.index.Batch(batch)
}

// Count returns the number of indexed tracks.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search runs a fuzzy search on title and artist.
func (i *Index) Search(ctx context.Context, searchTerm string, size int) ([]player.Track, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" {
		return []player.Track{}, nil
	}

	const (
		boostArtistExact = 50.0
		boostPhrase      = 12.0
		boostPrefix      = 6.0
		boostArtistToken = 3.0
		boostTitleToken  = 2.0
	)

	boolQuery := bleve.NewBooleanQuery()

	termExact := bleve.NewTermQuery(searchTerm)
	termExact.SetField(artistExactField)
	termExact.SetBoost(boostArtistExact)
	boolQuery.AddShould(termExact)

	for _, f := range []string{titleField, artistField} {
		phrase := bleve.NewMatchPhraseQuery(searchTerm)
		phrase.SetField(f)
		phrase.SetBoost(boostPhrase)
		boolQuery.AddShould(phrase)
	}

	tokens := strings.Fields(searchTerm)
	for n, tok := range tokens {
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}
		for _, f := range []string{titleField, artistField} {
			boost := boostTitleToken
			if f == artistField {
				boost = boostArtistToken
			}
			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			fq.SetBoost(boost)
			boolQuery.AddShould(fq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			if n == 0 {
				pq.SetBoost(boostPrefix)
			} else {
				pq.SetBoost(boost)
			}
			boolQuery.AddShould(pq)
		}
	}
	boolQuery.SetMinShould(1)

	return i.run(ctx, boolQuery, size)
}

// Similar returns tracks of the same artist, excluding t itself.
func (i *Index) Similar(ctx context.Context, t player.Track, size int) ([]player.Track, error) {
	artist := strings.ToLower(strings.TrimSpace(t.Artist))
	if t.VideoID == "" || artist == "" {
		return nil, errors.New("track has no id or artist")
	}

	boolQuery := bleve.NewBooleanQuery()

	termSelf := bleve.NewTermQuery(t.VideoID)
	termSelf.SetField(idField)
	boolQuery.AddMustNot(termSelf)

	sameArtist := bleve.NewTermQuery(artist)
	sameArtist.SetField(artistExactField)
	boolQuery.AddMust(sameArtist)

	return i.run(ctx, boolQuery, size)
}

func (i *Index) run(ctx context.Context, q query.Query, size int) ([]player.Track, error) {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{titleField, artistField, thumbnailField}
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	tracks := make([]player.Track, 0, len(res.Hits))
	for _, h := range res.Hits {
		tracks = append(tracks, player.Track{
			VideoID:   h.ID,
			Title:     field(h.Fields, titleField),
			Artist:    field(h.Fields, artistField),
			Thumbnail: field(h.Fields, thumbnailField),
		})
	}
	return tracks, nil
}

func field(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

// Close closes the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}
