package basic_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	dbcore "relmap/data/db"
	dbbasic "relmap/data/db/basic"
	"relmap/data/orm"
	"relmap/data/orm/basic"
	"relmap/data/orm/internal/ormtest"
	"relmap/data/orm/preload"
	apperrors "relmap/errors"
	"relmap/logging"
)

var blogSchema = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE posts (id INTEGER PRIMARY KEY, author_id INTEGER NOT NULL, title TEXT NOT NULL)`,
	`CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER NOT NULL, author_id INTEGER, body TEXT NOT NULL)`,
	`CREATE TABLE permalinks (id INTEGER PRIMARY KEY, post_id INTEGER NOT NULL, slug TEXT NOT NULL)`,
	`CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE post_tags (id INTEGER PRIMARY KEY, post_id INTEGER NOT NULL, tag_id INTEGER NOT NULL)`,

	`INSERT INTO users (id, name) VALUES (1, 'ann'), (2, 'bob'), (3, 'cy')`,
	`INSERT INTO posts (id, author_id, title) VALUES (1, 1, 'hello'), (2, 2, 'sql'), (3, 1, 'go')`,
	`INSERT INTO comments (id, post_id, author_id, body) VALUES
		(1, 1, 2, 'nice'), (2, 1, NULL, 'anon'), (3, 2, 1, 'thanks'), (4, 1, 2, 'again')`,
	`INSERT INTO permalinks (id, post_id, slug) VALUES (1, 2, 'sql-intro')`,
	`INSERT INTO tags (id, name) VALUES (1, 'go'), (2, 'sql')`,
	`INSERT INTO post_tags (id, post_id, tag_id) VALUES (1, 1, 1), (2, 2, 2), (3, 3, 1), (4, 1, 2)`,
}

// recordingDB 记录发出的查询语句
type recordingDB struct {
	dbcore.IDatabase

	mu      sync.Mutex
	queries []string
}

func (r *recordingDB) GetDialectName() string { return "sqlite" }

func (r *recordingDB) Query(ctx context.Context, query string, args ...any) (dbcore.IRows, error) {
	r.mu.Lock()
	r.queries = append(r.queries, fmt.Sprintf("%s -- %v", query, args))
	r.mu.Unlock()
	return r.IDatabase.Query(ctx, query, args...)
}

func openBlog(t *testing.T) *dbbasic.DB {
	t.Helper()
	db, err := dbbasic.New(dbcore.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ExecScript(context.Background(), blogSchema...))
	return db
}

func newOrm(t *testing.T, opts ...basic.Option) (*basic.Orm, *recordingDB) {
	t.Helper()
	rec := &recordingDB{IDatabase: openBlog(t)}
	o := basic.New(rec, append([]basic.Option{basic.WithLogger(logging.NewNoopLogger())}, opts...)...)
	return o, rec
}

func postModel(o *basic.Orm) orm.IModel {
	return o.Model(&orm.ModelMeta{Model: &ormtest.Post{}})
}

func TestOrm_Capabilities(t *testing.T) {
	o, _ := newOrm(t)
	caps := o.Capabilities()
	assert.True(t, caps.Supports(orm.CapabilityPreload))
	assert.True(t, caps.Supports(orm.CapabilityJoinAssembly))
	assert.True(t, postModel(o).Capabilities().Supports(orm.CapabilityQuery))
	assert.NotNil(t, o.Database())
}

func TestModel_FindWithPreload(t *testing.T) {
	o, _ := newOrm(t)

	var posts []*ormtest.Post
	err := postModel(o).Find(context.Background(), &posts,
		orm.WithOrderBy("id", false),
		orm.WithPreload("Author", "Permalink", "Tags"),
		orm.WithPreloads(orm.Preload{
			Name:    "Comments",
			Nested:  []orm.Preload{orm.PreloadOf("Author")},
			Options: []orm.QueryOption{orm.WithOrderBy("id", false)},
		}),
	)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "ann", posts[0].Author.MustGet().Name)
	assert.Equal(t, "bob", posts[1].Author.MustGet().Name)

	comments := posts[0].Comments.MustItems()
	require.Len(t, comments, 3)
	assert.Equal(t, "bob", comments[0].Author.MustGet().Name)
	assert.True(t, comments[1].Author.IsLoaded())
	assert.Nil(t, comments[1].Author.MustGet())
	assert.Empty(t, posts[2].Comments.MustItems())

	assert.Nil(t, posts[0].Permalink.MustGet())
	assert.Equal(t, "sql-intro", posts[1].Permalink.MustGet().Slug)

	var names []string
	for _, tag := range posts[0].Tags.MustItems() {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"go", "sql"}, names)
	assert.False(t, posts[0].Commenters.IsLoaded())
}

func TestModel_FindIntoValueSlice(t *testing.T) {
	o, _ := newOrm(t)

	var posts []ormtest.Post
	err := postModel(o).Find(context.Background(), &posts,
		orm.WithWhere("author_id = ?", 1),
		orm.WithOrderBy("id", true),
		orm.WithPreload("Author"),
	)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(3), posts[0].ID)
	assert.Equal(t, "ann", posts[0].Author.MustGet().Name)

	var users []*ormtest.User
	err = postModel(o).Find(context.Background(), &users)
	assert.ErrorIs(t, err, orm.ErrHeterogeneousInput)
}

func TestModel_First(t *testing.T) {
	o, _ := newOrm(t)
	m := postModel(o)

	var p ormtest.Post
	require.NoError(t, m.First(context.Background(), &p, orm.WithWhere("title = ?", "sql"), orm.WithPreload("Comments")))
	assert.Equal(t, int64(2), p.ID)
	assert.Len(t, p.Comments.MustItems(), 1)

	err := m.First(context.Background(), &p, orm.WithWhere("id = ?", 42))
	assert.ErrorIs(t, err, orm.ErrNotFound)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeNotFound))

	err = m.First(context.Background(), p)
	assert.Error(t, err)
}

func TestModel_PreloadErrorsCarryCodes(t *testing.T) {
	o, _ := newOrm(t)
	m := postModel(o)

	var posts []*ormtest.Post
	err := m.Find(context.Background(), &posts, orm.WithPreload("Likes"))
	require.Error(t, err)
	assert.ErrorIs(t, err, orm.ErrUnknownAssociation)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeInvalidInput))

	err = m.Find(context.Background(), &posts, orm.WithPreloads(orm.Preload{
		Name:    "Comments",
		Options: []orm.QueryOption{orm.WithJoin("JOIN users ON users.id = comments.author_id")},
	}))
	assert.ErrorIs(t, err, orm.ErrUnsupported)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeUnsupported))
}

func TestModel_Count(t *testing.T) {
	o, _ := newOrm(t)
	n, err := o.Model(&orm.ModelMeta{Model: &ormtest.Comment{}}).Count(context.Background(), orm.WithWhere("post_id = ?", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = postModel(o).Count(context.Background(), orm.WithJoin("JOIN users ON users.id = posts.author_id"))
	assert.ErrorIs(t, err, orm.ErrUnsupported)
}

func TestModel_TableOverride(t *testing.T) {
	o, _ := newOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &ormtest.Tag{}, Table: "missing_tags"})
	_, err := m.Count(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeDatabase))
}

func TestFetch_BatchesByParamLimit(t *testing.T) {
	o, rec := newOrm(t, basic.WithMaxParams(2))

	var posts []*ormtest.Post
	err := postModel(o).Find(context.Background(), &posts,
		orm.WithOrderBy("id", false),
		orm.WithPreload("Comments", "Tags"),
	)
	require.NoError(t, err)

	// 分批查询后结果仍按键有序归并
	assert.Len(t, posts[0].Comments.MustItems(), 3)
	assert.Len(t, posts[1].Comments.MustItems(), 1)
	assert.Len(t, posts[2].Tags.MustItems(), 1)

	g := goldie.New(t)
	g.Assert(t, "preload_queries", []byte(strings.Join(rec.queries, "\n")+"\n"))
}

func TestFetch_WithOptions(t *testing.T) {
	o, _ := newOrm(t)
	p := o.Preloader()

	in := []any{&ormtest.Post{ID: 1}, &ormtest.Post{ID: 2}}
	out, err := p.Preload(context.Background(), in, orm.Preload{
		Name:    "Comments",
		Options: []orm.QueryOption{orm.WithWhere("body <> ?", "anon"), orm.WithOrderBy("id", true)},
	})
	require.NoError(t, err)

	var ids []int64
	for _, c := range out[0].(*ormtest.Post).Comments.MustItems() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{4, 1}, ids)
	assert.Len(t, out[1].(*ormtest.Post).Comments.MustItems(), 1)
}

func TestFetch_Errors(t *testing.T) {
	o, _ := newOrm(t, basic.WithMaxParams(1))
	ctx := context.Background()

	// 附加条件占满参数额度
	_, err := o.Preload(ctx, []any{&ormtest.Post{ID: 1}}, orm.Preload{
		Name:    "Comments",
		Options: []orm.QueryOption{orm.WithWhere("body <> ?", "x")},
	})
	assert.Error(t, err)

	out, err := o.Fetch(ctx, preload.Query{Schema: nil})
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestOrm_PreloadRequiresEntities(t *testing.T) {
	o, rec := newOrm(t)
	out, err := o.Preload(context.Background(), []any{}, orm.PreloadOf("Author"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, rec.queries)
}
