package model

import (
	"time"
)

// ContentType 内容类型
type ContentType string

const (
	TypeArticle   ContentType = "article"
	TypeVideo     ContentType = "video"
	TypeFormation ContentType = "formation"
	TypeParcours  ContentType = "parcours"
)

// Purchasable 是否可以单独购买
func (t ContentType) Purchasable() bool {
	return t == TypeArticle || t == TypeVideo || t == TypeFormation
}

// Trackable 是否记录观看进度
func (t ContentType) Trackable() bool {
	return t == TypeVideo || t == TypeFormation
}

// Category 分类
type Category struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"unique;not null"`
	Slug      string    `json:"slug" gorm:"unique;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// Article 文章
type Article struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"unique;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	MediaKey    string    `json:"-"`
	IsPremium   bool      `json:"isPremium" gorm:"index"`
	Price       float64   `json:"price"`
	AuthorID    int       `json:"authorId" gorm:"index;not null"`
	CategoryID  *int      `json:"categoryId" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Video 视频，Duration 单位为分钟，0 表示时长未知
type Video struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"unique;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	MediaKey    string    `json:"-"`
	Duration    float64   `json:"duration"`
	IsPremium   bool      `json:"isPremium" gorm:"index"`
	Price       float64   `json:"price"`
	AuthorID    int       `json:"authorId" gorm:"index;not null"`
	CategoryID  *int      `json:"categoryId" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Formation 课程（多视频）
type Formation struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"unique;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	MediaKey    string    `json:"-"`
	IsPremium   bool      `json:"isPremium" gorm:"index"`
	Price       float64   `json:"price"`
	AuthorID    int       `json:"authorId" gorm:"index;not null"`
	CategoryID  *int      `json:"categoryId" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoFormation 课程与视频的有序关联
type VideoFormation struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	FormationID int    `json:"formationId" gorm:"uniqueIndex:idx_formation_video;not null"`
	VideoID     int    `json:"videoId" gorm:"uniqueIndex:idx_formation_video;not null;index"`
	Order       int    `json:"order" gorm:"column:order_index;not null;default:0"`
	CoverURL    string `json:"coverUrl"`
	Video       *Video `json:"video,omitempty" gorm:"foreignKey:VideoID"`
}

// Parcours 学习路径（有序课程集合）
type Parcours struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"unique;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	MediaKey    string    `json:"-"`
	AuthorID    int       `json:"authorId" gorm:"index;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FormationParcours 学习路径与课程的有序关联
type FormationParcours struct {
	ID          int        `json:"id" gorm:"primaryKey"`
	ParcoursID  int        `json:"parcoursId" gorm:"uniqueIndex:idx_parcours_formation;not null"`
	FormationID int        `json:"formationId" gorm:"uniqueIndex:idx_parcours_formation;not null;index"`
	Order       int        `json:"order" gorm:"column:order_index;not null;default:0"`
	Formation   *Formation `json:"formation,omitempty" gorm:"foreignKey:FormationID"`
}

// ContentRef 权限判断所需的内容摘要
type ContentRef struct {
	ID        int
	Type      ContentType
	IsPremium bool
	Price     float64
	AuthorID  int
}

// Ref 返回文章的内容摘要
func (a *Article) Ref() ContentRef {
	return ContentRef{ID: a.ID, Type: TypeArticle, IsPremium: a.IsPremium, Price: a.Price, AuthorID: a.AuthorID}
}

// Ref 返回视频的内容摘要
func (v *Video) Ref() ContentRef {
	return ContentRef{ID: v.ID, Type: TypeVideo, IsPremium: v.IsPremium, Price: v.Price, AuthorID: v.AuthorID}
}

// Ref 返回课程的内容摘要
func (f *Formation) Ref() ContentRef {
	return ContentRef{ID: f.ID, Type: TypeFormation, IsPremium: f.IsPremium, Price: f.Price, AuthorID: f.AuthorID}
}
