package models

import "time"

// Article publication kinds.
const (
	ArticleJournal    = "Journal"
	ArticleConference = "Conference Event"
)

// Article is a bibliographic production extracted from curricula.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title string `json:"title" gorm:"uniqueIndex;size:500;not null"`
	Year  int    `json:"year,omitempty" gorm:"index"`
	Venue string `json:"venue,omitempty"` // journal or conference name

	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
	DOI    string `json:"doi,omitempty" gorm:"column:doi;index"`

	Kind string `json:"kind" gorm:"index"` // Journal | Conference Event
}

func (Article) TableName() string { return "articles" }

// ArticleAuthor links an article to one of its authors.
type ArticleAuthor struct {
	ArticleID uint `json:"article_id" gorm:"primaryKey;autoIncrement:false"`
	PersonID  uint `json:"person_id" gorm:"primaryKey;autoIncrement:false"`
}

func (ArticleAuthor) TableName() string { return "article_authors" }
