// Package ormtest 提供测试用的博客模型与内存存储
package ormtest

import (
	"relmap/data/orm"
)

// User 用户
type User struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

// Post 文章：持有作者外键，拥有评论、固定链接与标签
type Post struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	AuthorID int64  `gorm:"column:author_id"`
	Title    string `gorm:"column:title"`

	Author     orm.Ref[User]      `orm:"belongs_to" gorm:"-"`
	Comments   orm.Many[Comment]  `orm:"has_many;foreign_key:PostID" gorm:"-"`
	Permalink  orm.Ref[Permalink] `orm:"has_one;foreign_key:PostID" gorm:"-"`
	PostTags   orm.Many[PostTag]  `orm:"has_many;foreign_key:PostID" gorm:"-"`
	Tags       orm.Many[Tag]      `orm:"many_to_many;through:PostTags.Tag" gorm:"-"`
	Commenters orm.Many[User]     `orm:"through:Comments.Author" gorm:"-"`
}

// Comment 评论，匿名评论的 AuthorID 为 nil
type Comment struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	PostID   int64  `gorm:"column:post_id"`
	AuthorID *int64 `gorm:"column:author_id"`
	Body     string `gorm:"column:body"`

	Author orm.Ref[User] `orm:"belongs_to" gorm:"-"`
	Post   orm.Ref[Post] `orm:"belongs_to" gorm:"-"`
}

// Permalink 文章的固定链接
type Permalink struct {
	ID     int64  `gorm:"column:id;primaryKey"`
	PostID int64  `gorm:"column:post_id"`
	Slug   string `gorm:"column:slug"`
}

// Tag 标签
type Tag struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

// PostTag 文章与标签的关联表
type PostTag struct {
	ID     int64 `gorm:"column:id;primaryKey"`
	PostID int64 `gorm:"column:post_id"`
	TagID  int64 `gorm:"column:tag_id"`

	Tag orm.Ref[Tag] `orm:"belongs_to" gorm:"-"`
}

// Int64 返回指针，便于构造可空外键
func Int64(v int64) *int64 { return &v }
