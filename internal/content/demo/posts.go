package demo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/inkstream/inkstream-backend/internal/content"
)

// The demo dataset is generated deterministically: ten topics, ten titles
// each, dates counting back one day per post from a fixed base date. It
// exists so the service runs with realistic content when no CMS is
// configured, and it doubles as the fixture set for tests.

const baseDateISO = "2026-02-05"

type topicDef struct {
	slug     string
	label    string
	coverAlt string
}

var topics = []topicDef{
	{"art", "Art", "Art thumbnail"},
	{"history", "History", "History thumbnail"},
	{"literature", "Literature", "Literature thumbnail"},
	{"music", "Music", "Music thumbnail"},
	{"relationships", "Relationships", "Relationships thumbnail"},
	{"science", "Science", "Science thumbnail"},
	{"screen", "Screen", "Screen thumbnail"},
	{"sports", "Sports", "Sports thumbnail"},
	{"technology", "Technology", "Technology thumbnail"},
	{"true-crime", "True Crime", "True Crime thumbnail"},
}

var topicTitles = map[string][]string{
	"art": {
		"The quiet power of negative space in modern posters",
		"Why palettes feel different under warm indoor light",
		"A simple method to study composition without copying",
		"How to build a visual library that actually helps",
		"The case for slower typography decisions",
		"What makes a grid feel calm instead of rigid",
		"A practical way to critique your own work",
		"The hidden rhythm of editorial layouts",
		"When illustration should stay imperfect",
		"A gentle approach to building style consistency",
	},
	"history": {
		"How small trade routes shaped big cultural shifts",
		"What letters reveal about everyday life in the past",
		"Why borders moved faster than people realized",
		"A short guide to reading old maps critically",
		"The overlooked role of logistics in empires",
		"How explaining history changes what you remember",
		"What public records can and cannot tell us",
		"Why timelines rarely explain cause and effect",
		"The myths we inherit from simplified narratives",
		"A calm way to research without getting lost",
	},
	"literature": {
		"What makes a paragraph feel inevitable",
		"How to read dialogue for subtext, not plot",
		"A simple trick for noticing structure in novels",
		"Why some metaphors feel tired and others live",
		"What editors look for in a strong opening page",
		"How to keep a voice consistent across chapters",
		"The quiet difference between tone and style",
		"What re-reading teaches that highlights never do",
		"How writers create momentum without action scenes",
		"A method for collecting quotes without hoarding",
	},
	"music": {
		"Why repeating a motif can feel fresh each time",
		"How dynamics shape emotion more than melody",
		"A calm way to practice with intention",
		"What makes a chorus memorable without volume",
		"How to hear arrangement choices in pop tracks",
		"The role of silence in powerful songwriting",
		"Why tempo changes feel like narrative turns",
		"A guide to listening for texture and space",
		"How rhythm carries meaning across genres",
		"Small habits that improve musical taste over time",
	},
	"relationships": {
		"The difference between clarity and control",
		"How to ask questions that invite honesty",
		"What healthy boundaries look like in practice",
		"A gentle way to handle recurring conflict",
		"Why reassurance works better than arguments",
		"How to repair small ruptures quickly",
		"What it means to listen without fixing",
		"The subtle signs of mutual respect",
		"How to disagree without building resentment",
		"A simple framework for better conversations",
	},
	"science": {
		"How to read a paper without drowning in methods",
		"Why uncertainty is a feature, not a flaw",
		"A simple checklist for evaluating claims",
		"What replication actually changes in a field",
		"How to build intuition with small experiments",
		"Why models are useful even when they are wrong",
		"The hidden assumptions inside common graphs",
		"A calm guide to statistical literacy",
		"How to compare explanations fairly",
		"What good science communication avoids doing",
	},
	"screen": {
		"Why pacing matters more than plot twists",
		"How to notice visual motifs in cinematography",
		"The quiet craft behind believable dialogue",
		"What editing does that you never see",
		"How sound design shapes the story",
		"Why some scenes feel long in a good way",
		"A simple way to review films with structure",
		"How to spot theme without over-reading",
		"What makes a series rewatchable",
		"The difference between mood and message",
	},
	"sports": {
		"What consistency looks like in real training blocks",
		"How recovery affects performance more than hype",
		"Why fundamentals beat novelty over time",
		"A calm guide to tracking progress",
		"What coaches mean by game intelligence",
		"How routines reduce decision fatigue",
		"The role of confidence in close matches",
		"How to watch a game more analytically",
		"Why small habits win seasons",
		"How to set goals that survive setbacks",
	},
	"technology": {
		"Why good systems feel boring in the best way",
		"How to design interfaces with fewer regrets",
		"A simple way to name things consistently",
		"What quality gates really protect you from",
		"How to refactor without losing momentum",
		"Why tokens make design decisions reusable",
		"How to keep a component library coherent",
		"The difference between polish and complexity",
		"A calm approach to performance work",
		"How to document decisions so future-you wins",
	},
	"true-crime": {
		"How narratives bias what we think we know",
		"What evidence feels like when you slow down",
		"Why timelines can mislead as much as they help",
		"How to read sources without sensationalism",
		"What makes a case summary actually useful",
		"How to separate facts from interpretations",
		"Why details get repeated even when unverified",
		"A calm framework for ethical storytelling",
		"How context changes every conclusion",
		"What to do when sources disagree",
	},
}

var topicTags = map[string][]content.Ref{
	"art": {
		{Slug: "composition", Label: "composition"},
		{Slug: "typography", Label: "typography"},
		{Slug: "color", Label: "color"},
		{Slug: "layout", Label: "layout"},
		{Slug: "process", Label: "process"},
		{Slug: "reference", Label: "reference"},
		{Slug: "critique", Label: "critique"},
		{Slug: "visual-library", Label: "visual-library"},
		{Slug: "tools", Label: "tools"},
		{Slug: "poster", Label: "poster"},
	},
	"history": {
		{Slug: "maps", Label: "maps"},
		{Slug: "archives", Label: "archives"},
		{Slug: "trade", Label: "trade"},
		{Slug: "empires", Label: "empires"},
		{Slug: "letters", Label: "letters"},
		{Slug: "logistics", Label: "logistics"},
		{Slug: "timeline", Label: "timeline"},
		{Slug: "context", Label: "context"},
		{Slug: "sources", Label: "sources"},
		{Slug: "myths", Label: "myths"},
	},
	"literature": {
		{Slug: "voice", Label: "voice"},
		{Slug: "structure", Label: "structure"},
		{Slug: "dialogue", Label: "dialogue"},
		{Slug: "metaphor", Label: "metaphor"},
		{Slug: "editing", Label: "editing"},
		{Slug: "reading", Label: "reading"},
		{Slug: "quotes", Label: "quotes"},
		{Slug: "tone", Label: "tone"},
		{Slug: "craft", Label: "craft"},
		{Slug: "openings", Label: "openings"},
	},
	"music": {
		{Slug: "arrangement", Label: "arrangement"},
		{Slug: "dynamics", Label: "dynamics"},
		{Slug: "rhythm", Label: "rhythm"},
		{Slug: "melody", Label: "melody"},
		{Slug: "practice", Label: "practice"},
		{Slug: "listening", Label: "listening"},
		{Slug: "texture", Label: "texture"},
		{Slug: "tempo", Label: "tempo"},
		{Slug: "songwriting", Label: "songwriting"},
		{Slug: "motifs", Label: "motifs"},
	},
	"relationships": {
		{Slug: "boundaries", Label: "boundaries"},
		{Slug: "communication", Label: "communication"},
		{Slug: "repair", Label: "repair"},
		{Slug: "respect", Label: "respect"},
		{Slug: "conflict", Label: "conflict"},
		{Slug: "clarity", Label: "clarity"},
		{Slug: "listening", Label: "listening"},
		{Slug: "trust", Label: "trust"},
		{Slug: "honesty", Label: "honesty"},
		{Slug: "frameworks", Label: "frameworks"},
	},
	"science": {
		{Slug: "papers", Label: "papers"},
		{Slug: "uncertainty", Label: "uncertainty"},
		{Slug: "statistics", Label: "statistics"},
		{Slug: "replication", Label: "replication"},
		{Slug: "models", Label: "models"},
		{Slug: "graphs", Label: "graphs"},
		{Slug: "methods", Label: "methods"},
		{Slug: "claims", Label: "claims"},
		{Slug: "communication", Label: "communication"},
		{Slug: "experiments", Label: "experiments"},
	},
	"screen": {
		{Slug: "cinematography", Label: "cinematography"},
		{Slug: "editing", Label: "editing"},
		{Slug: "sound", Label: "sound"},
		{Slug: "dialogue", Label: "dialogue"},
		{Slug: "pacing", Label: "pacing"},
		{Slug: "motifs", Label: "motifs"},
		{Slug: "theme", Label: "theme"},
		{Slug: "review", Label: "review"},
		{Slug: "series", Label: "series"},
		{Slug: "story", Label: "story"},
	},
	"sports": {
		{Slug: "training", Label: "training"},
		{Slug: "recovery", Label: "recovery"},
		{Slug: "fundamentals", Label: "fundamentals"},
		{Slug: "habits", Label: "habits"},
		{Slug: "coaching", Label: "coaching"},
		{Slug: "goals", Label: "goals"},
		{Slug: "mindset", Label: "mindset"},
		{Slug: "analysis", Label: "analysis"},
		{Slug: "routine", Label: "routine"},
		{Slug: "progress", Label: "progress"},
	},
	"technology": {
		{Slug: "systems", Label: "systems"},
		{Slug: "ui", Label: "ui"},
		{Slug: "components", Label: "components"},
		{Slug: "tokens", Label: "tokens"},
		{Slug: "refactor", Label: "refactor"},
		{Slug: "performance", Label: "performance"},
		{Slug: "docs", Label: "docs"},
		{Slug: "quality", Label: "quality"},
		{Slug: "naming", Label: "naming"},
		{Slug: "architecture", Label: "architecture"},
	},
	"true-crime": {
		{Slug: "sources", Label: "sources"},
		{Slug: "evidence", Label: "evidence"},
		{Slug: "ethics", Label: "ethics"},
		{Slug: "timeline", Label: "timeline"},
		{Slug: "media", Label: "media"},
		{Slug: "psychology", Label: "psychology"},
		{Slug: "forensics", Label: "forensics"},
		{Slug: "court-docs", Label: "court-docs"},
		{Slug: "justice", Label: "justice"},
		{Slug: "context", Label: "context"},
	},
}

var (
	videoTag = content.Ref{Slug: "videos", Label: "Videos"}
	luckyTag = content.Ref{Slug: "are-you-lucky", Label: "Are You Lucky"}
)

var slugifyPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(input string) string {
	s := slugifyPattern.ReplaceAllString(strings.ToLower(input), "-")
	return strings.Trim(s, "-")
}

func isoDaysBack(daysBack int) string {
	base, _ := time.Parse("2006-01-02", baseDateISO)
	return base.AddDate(0, 0, -daysBack).Format("2006-01-02")
}

func pickThreeTags(topicSlug string, i int) []content.Ref {
	pool := topicTags[topicSlug]
	a := pool[(i*3)%len(pool)]
	b := pool[(i*3+5)%len(pool)]
	c := pool[(i*3+9)%len(pool)]

	if a.Slug != b.Slug && a.Slug != c.Slug && b.Slug != c.Slug {
		return []content.Ref{a, b, c}
	}

	out := []content.Ref{a}
	for _, cand := range append([]content.Ref{b, c}, pool...) {
		dup := false
		for _, t := range out {
			if t.Slug == cand.Slug {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, cand)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func prependTag(special content.Ref, tags []content.Ref) []content.Ref {
	out := []content.Ref{special}
	for _, t := range tags {
		if t.Slug == special.Slug {
			continue
		}
		out = append(out, t)
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func makeBody(relatedSlug string) []content.BodyBlock {
	return []content.BodyBlock{
		{Kind: content.BlockParagraph, Text: "This is demo body content rendered inside the post body."},
		{Kind: content.BlockParagraph, Text: "Short paragraphs keep layouts realistic and easy to scan."},
		{Kind: content.BlockHeading, Text: "Key idea"},
		{Kind: content.BlockParagraph, Text: "Keep one idea per paragraph, then add one concrete example."},
		{Kind: content.BlockParagraph, Text: "/blog/" + relatedSlug},
	}
}

func generatePosts() []content.Post {
	out := make([]content.Post, 0, len(topics)*10)
	globalIndex := 0

	for i := 0; i < 10; i++ {
		for _, topic := range topics {
			title := topicTitles[topic.slug][i]
			slug := topic.slug + "-" + slugify(title)

			nextTitle := topicTitles[topic.slug][(i+1)%10]
			relatedSlug := topic.slug + "-" + slugify(nextTitle)

			coverN := globalIndex%20 + 1
			tags := pickThreeTags(topic.slug, i)
			if globalIndex < 10 {
				tags = prependTag(videoTag, tags)
			}
			if globalIndex < 20 {
				tags = prependTag(luckyTag, tags)
			}

			out = append(out, content.Post{
				Slug:       slug,
				Title:      title,
				Summary:    fmt.Sprintf("A concise %s note with clear takeaways and a calm structure.", strings.ToLower(topic.label)),
				DateISO:    isoDaysBack(globalIndex),
				AuthorName: "Ozge",
				Cover: content.Cover{
					Src: fmt.Sprintf("/demo/archive/%02d.jpg", coverN),
					Alt: topic.coverAlt,
				},
				Topic: &content.Ref{Slug: topic.slug, Label: topic.label},
				Tags:  tags,
				Body:  makeBody(relatedSlug),
			})

			globalIndex++
		}
	}

	return out
}
