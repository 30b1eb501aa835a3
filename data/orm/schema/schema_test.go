package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap/data/orm"
)

type author struct {
	ID    int64
	Name  string
	Posts orm.Many[article] `orm:"has_many;foreign_key:AuthorID"`
}

type article struct {
	ID        int64 `gorm:"column:article_id;primaryKey"`
	AuthorID  int64
	Title     string `db:"headline"`
	Body      string `json:"content,omitempty"`
	CreatedAt time.Time

	Author   orm.Ref[author]   `orm:"belongs_to"`
	Notes    orm.Many[note]    `orm:"foreign_key:ArticleID"`
	Cover    orm.Ref[cover]    `orm:"has_one;foreign_key:ArticleID"`
	Labels   orm.Many[labeled] `orm:"has_many;foreign_key:ArticleID"`
	Tags     orm.Many[label]   `orm:"many_to_many;through:Labels.Label"`
	Noters   orm.Many[author]  `orm:"through:Notes.Writer"`
	FirstTag orm.Ref[label]    `orm:"through:Labels.Label"`
}

type note struct {
	ID        uuid.UUID
	ArticleID int64
	WriterID  *int64
	Writer    orm.Ref[author]
}

type cover struct {
	ID        int64
	ArticleID int64
}

type labeled struct {
	ID        int64
	ArticleID int64
	LabelID   int64
	Label     orm.Ref[label]
}

type label struct {
	ID   int64
	Name string
}

func (label) TableName() string { return "tag_labels" }

type audit struct {
	CreatedBy string
	UpdatedAt time.Time
}

type membership struct {
	audit
	GroupID int64 `gorm:"primaryKey"`
	UserID  int64 `gorm:"primaryKey"`
}

func TestParse_Fields(t *testing.T) {
	s, err := NewRegistry().Parse(&article{})
	require.NoError(t, err)

	assert.Equal(t, "article", s.Name)
	assert.Equal(t, "articles", s.Table)
	assert.Equal(t, []string{"article_id", "author_id", "headline", "content", "created_at"}, s.Columns())
	require.Len(t, s.PrimaryKeys, 1)
	assert.Equal(t, "ID", s.PrimaryKeys[0].Name)

	f, ok := s.FieldByColumn("headline")
	require.True(t, ok)
	assert.Equal(t, "Title", f.Name)
	assert.Equal(t, "author_id", s.Column("AuthorID"))
	assert.Equal(t, "", s.Column("Missing"))
	assert.Len(t, s.Associations, 7)
}

func TestParse_Associations(t *testing.T) {
	reg := NewRegistry()
	s := reg.MustParse(article{})

	a, err := s.Association("Author")
	require.NoError(t, err)
	assert.Equal(t, orm.BelongsTo{Field: "Author", OwnerKey: "AuthorID", RelatedKey: "ID", RelatedType: reflect.TypeOf(author{})}, a)

	a, err = s.Association("Notes")
	require.NoError(t, err)
	assert.Equal(t, orm.AssociationHasMany, a.Kind())
	owner, related, ok := orm.LinkKeys(a)
	require.True(t, ok)
	assert.Equal(t, "ID", owner)
	assert.Equal(t, "ArticleID", related)

	a, err = s.Association("Cover")
	require.NoError(t, err)
	assert.Equal(t, orm.AssociationHasOne, a.Kind())
	assert.Equal(t, orm.CardinalityOne, a.Cardinality())

	a, err = s.Association("Tags")
	require.NoError(t, err)
	through, ok := a.(orm.Through)
	require.True(t, ok)
	assert.Equal(t, orm.AssociationManyToMany, through.Kind())
	assert.Equal(t, []string{"Labels", "Label"}, through.Path)

	a, err = s.Association("Noters")
	require.NoError(t, err)
	assert.Equal(t, orm.AssociationThrough, a.Kind())
	_, _, ok = orm.LinkKeys(a)
	assert.False(t, ok)

	// 省略类型时：存在 <Field>ID 推断为 belongs_to
	ns := reg.MustParse(note{})
	a, err = ns.Association("Writer")
	require.NoError(t, err)
	assert.Equal(t, orm.AssociationBelongsTo, a.Kind())

	// 标签模型通过 TableName 覆盖表名
	assert.Equal(t, "tag_labels", reg.MustParse(label{}).Table)
}

func TestAssociation_Errors(t *testing.T) {
	s := NewRegistry().MustParse(&article{})

	_, err := s.Association("Nope")
	assert.ErrorIs(t, err, orm.ErrUnknownAssociation)
	_, err = s.Association("Title")
	assert.ErrorIs(t, err, orm.ErrNotAssociation)
	_, err = s.Association("CreatedAt")
	assert.ErrorIs(t, err, orm.ErrNotAssociation)
}

func TestParse_Cyclic(t *testing.T) {
	reg := NewRegistry()
	a := reg.MustParse(&author{})
	b := reg.MustParse(&article{})

	assoc, related, err := reg.Resolve(a, "Posts")
	require.NoError(t, err)
	assert.Same(t, b, related)
	assert.Equal(t, orm.AssociationHasMany, assoc.Kind())

	_, related, err = reg.Resolve(b, "Author")
	require.NoError(t, err)
	assert.Same(t, a, related)
}

func TestParse_EmbeddedAndCompositeKey(t *testing.T) {
	s := NewRegistry().MustParse(&membership{})

	assert.Equal(t, []string{"created_by", "updated_at", "group_id", "user_id"}, s.Columns())
	require.Len(t, s.PrimaryKeys, 2)

	id, err := s.Identity(&membership{GroupID: 1, UserID: 2})
	require.NoError(t, err)
	other, err := s.Identity(&membership{GroupID: 1, UserID: 3})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	_, err = s.Identity(&membership{GroupID: 1})
	assert.ErrorIs(t, err, orm.ErrMissingPrimaryKey)
}

func TestParse_TagErrors(t *testing.T) {
	type badOption struct {
		ID    int64
		Child orm.Many[label] `orm:"has_many;bogus"`
	}
	type badCard struct {
		ID    int64
		Child orm.Ref[label] `orm:"has_many"`
	}
	type shortThrough struct {
		ID   int64
		Tags orm.Many[label] `orm:"through:Labels"`
	}
	type missingFK struct {
		ID    int64
		Owner orm.Ref[author] `orm:"belongs_to;foreign_key:OwnerRef"`
	}

	for _, v := range []any{badOption{}, badCard{}, shortThrough{}, missingFK{}} {
		_, err := NewRegistry().Parse(v)
		assert.Error(t, err, "%T", v)
	}

	_, err := NewRegistry().Parse(42)
	assert.Error(t, err)
	_, err = NewRegistry().Parse(nil)
	assert.Error(t, err)
}

func TestResolve_MissingRelatedKey(t *testing.T) {
	type orphan struct {
		ID    int64
		Items orm.Many[label] `orm:"has_many;foreign_key:OrphanID"`
	}
	reg := NewRegistry()
	_, _, err := reg.Resolve(reg.MustParse(orphan{}), "Items")
	require.Error(t, err)
	assert.False(t, errors.Is(err, orm.ErrUnknownAssociation))
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ID":        "id",
		"UserID":    "user_id",
		"HTTPCode":  "http_code",
		"CreatedAt": "created_at",
		"Name2Go":   "name2_go",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}
