package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
)

const minePage = `<html><head>
<meta property="og:title" content="Solar farms expand">
<meta property="og:description" content="Aerial view of new solar farm">
<meta property="og:image" content="/images/solar-farm.jpg">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta name="twitter:image" content="https://cdn.example.com/images/solar-farm.jpg?x=1">
</head><body>
<img src="data:image/gif;base64,R0lGOD" data-src="/img/panels.jpg" alt="Solar panels on a roof" width="800" height="600">
<img src="/img/brand.png" alt="Company logo">
<img src="/img/tiny.jpg" width="100" height="400" alt="Tiny preview">
<img src="/img/wide.jpg" width="100px" alt="Wide chart">
<figure><img src="chart.png"><figcaption>Capacity growth
  chart</figcaption></figure>
<img src="/images/solar-farm.jpg">
<img src="javascript:void(0)">
<img class="ad-banner" src="/img/promo.jpg">
</body></html>`

func TestMineCandidates(t *testing.T) {
	got := MineCandidates(minePage, "https://example.com/news/article", DefaultLimits())
	require.Len(t, got, 5)

	assert.Equal(t, model.ImageCandidate{
		URL:         "https://example.com/images/solar-farm.jpg",
		ContextText: "Solar farms expand Aerial view of new solar farm",
		SourceHint:  model.ImageFromMeta,
		Width:       1200,
		Height:      630,
	}, got[0])
	assert.Equal(t, "https://cdn.example.com/images/solar-farm.jpg?x=1", got[1].URL)
	assert.Equal(t, model.ImageFromMeta, got[1].SourceHint)

	assert.Equal(t, model.ImageCandidate{
		URL:         "https://example.com/img/panels.jpg",
		ContextText: "Solar panels on a roof",
		SourceHint:  model.ImageFromImg,
		Width:       800,
		Height:      600,
	}, got[2])

	// Only one dimension declared: kept.
	assert.Equal(t, "https://example.com/img/wide.jpg", got[3].URL)
	assert.Equal(t, 100, got[3].Width)
	assert.Zero(t, got[3].Height)

	assert.Equal(t, "https://example.com/news/chart.png", got[4].URL)
	assert.Equal(t, "Capacity growth chart", got[4].ContextText)
}

func TestMineCandidates_Limits(t *testing.T) {
	got := MineCandidates(minePage, "https://example.com/", Limits{MaxImgTags: 70, MaxPerPage: 2, MinDimension: 180})
	assert.Len(t, got, 2)

	body := `<img src="/a-photo.jpg"><img src="/b-photo.jpg"><img src="/c-photo.jpg">`
	got = MineCandidates(body, "https://example.com/", Limits{MaxImgTags: 2, MaxPerPage: 16, MinDimension: 180})
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/b-photo.jpg", got[1].URL)
}

func TestMineCandidates_BadPageURL(t *testing.T) {
	assert.Empty(t, MineCandidates(minePage, "://bad", DefaultLimits()))
}

func TestLimitsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultLimits(), LimitsFromConfig(config.ImageConfig{}))
	l := LimitsFromConfig(config.ImageConfig{MaxImgTags: 10, MaxPerPage: 3, MinDimension: 50})
	assert.Equal(t, Limits{MaxImgTags: 10, MaxPerPage: 3, MinDimension: 50}, l)
}

func TestIsGeneric(t *testing.T) {
	for _, s := range []string{"site-logo", "User Avatar", "icon", "ad-slot", "tracking pixel", "social share"} {
		assert.True(t, IsGeneric(s), s)
	}
	for _, s := range []string{"", "Solar farm", "uploads/photo.jpg", "catalog", "download chart"} {
		assert.False(t, IsGeneric(s), s)
	}
}

func TestDimension(t *testing.T) {
	assert.Equal(t, 640, dimension("640"))
	assert.Equal(t, 640, dimension(" 640PX "))
	assert.Zero(t, dimension("50%"))
	assert.Zero(t, dimension("-3"))
	assert.Zero(t, dimension(""))
}
