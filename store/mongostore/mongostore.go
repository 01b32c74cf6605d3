// Package mongostore implements store.Store on MongoDB
package mongostore

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"memoria/models"
	"memoria/store"
)

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	albums *mongo.Collection
	photos *mongo.Collection
	// sc is the session context of the running transaction, if any
	sc context.Context
	// runTxn runs fn inside a server transaction
	runTxn func(ctx context.Context, fn func(sc mongo.SessionContext) error) error
}

func New(client *mongo.Client, db *mongo.Database) *Store {
	s := &Store{
		client: client,
		users:  db.Collection("users"),
		albums: db.Collection("albums"),
		photos: db.Collection("photos"),
	}
	s.runTxn = s.withTransaction
	return s
}

// EnsureIndexes creates the secondary indexes used by the queries
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_by_external_id")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_by_username")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("users_by_email")},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, Options: options.Index().SetName("users_by_created")},
		},
		s.albums: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("albums_by_user")},
			{Keys: bson.D{{Key: "is_public", Value: 1}}, Options: options.Index().SetName("albums_by_visibility")},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("albums_by_user_and_created")},
		},
		s.photos: {
			{Keys: bson.D{{Key: "album_id", Value: 1}}, Options: options.Index().SetName("photos_by_album")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("photos_by_user")},
			{Keys: bson.D{{Key: "storage_id", Value: 1}}, Options: options.Index().SetName("photos_by_storage")},
			{Keys: bson.D{{Key: "thumbnail_storage_id", Value: 1}}, Options: options.Index().SetName("photos_by_thumbnail")},
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("photos_by_created")},
			{Keys: bson.D{{Key: "album_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("photos_by_album_and_created")},
		},
	}
	for c, idx := range specs {
		if _, err := c.Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// Tx runs fn in a multi-document transaction. Standalone servers reject the
// first write inside it, nothing is committed, and fn is rerun without one.
func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.sc != nil {
		return fn(s)
	}
	err := s.runTxn(ctx, func(sc mongo.SessionContext) error {
		tx := *s
		tx.sc = sc
		return fn(&tx)
	})
	if isTxnNotSupported(err) {
		log.Debug().Err(err).Msg("Transactions unavailable, writing without one")
		return fn(s)
	}
	return err
}

func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) ctx(ctx context.Context) context.Context {
	if s.sc != nil {
		return s.sc
	}
	return ctx
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func keyset(filter bson.M, cursor string) (bson.M, error) {
	c, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if c != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": c.CreatedAt}},
			bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.ID}},
		}
	}
	return filter, nil
}

func findOptions(limit int, oldestFirst bool) *options.FindOptions {
	dir := -1
	if oldestFirst {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}})
	if limit > 0 {
		opts.SetLimit(int64(limit + 1))
	}
	return opts
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M) (T, error) {
	var v T
	err := c.FindOne(ctx, filter).Decode(&v)
	return v, translate(err)
}

func deleteOne(ctx context.Context, c *mongo.Collection, id string) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func updateOne(ctx context.Context, c *mongo.Collection, id string, update bson.M) error {
	res, err := c.UpdateByID(ctx, id, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	return findOne[models.User](s.ctx(ctx), s.users, bson.M{"_id": id})
}

func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	return findOne[models.User](s.ctx(ctx), s.users, bson.M{"external_id": externalID})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	return findOne[models.User](s.ctx(ctx), s.users, bson.M{"username": username})
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(s.ctx(ctx), user)
	return translate(err)
}

func (s *Store) PatchUser(ctx context.Context, id string, patch store.UserPatch) error {
	set := bson.M{
		"name":       patch.Name,
		"username":   patch.Username,
		"email":      patch.Email,
		"updated_at": patch.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if patch.ImageURL != nil {
		set["image_url"] = *patch.ImageURL
	} else {
		update["$unset"] = bson.M{"image_url": ""}
	}
	return updateOne(s.ctx(ctx), s.users, id, update)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteOne(s.ctx(ctx), s.users, id)
}

func (s *Store) ListUsers(ctx context.Context, limit int, cursor string) (store.Page[models.User], error) {
	filter, err := keyset(bson.M{}, cursor)
	if err != nil {
		return store.Page[models.User]{}, err
	}
	users, err := findAll[models.User](s.ctx(ctx), s.users, filter, findOptions(limit, false))
	if err != nil {
		return store.Page[models.User]{}, err
	}
	return store.NewPage(users, limit, store.UserKey), nil
}

func (s *Store) GetAlbum(ctx context.Context, id string) (models.Album, error) {
	return findOne[models.Album](s.ctx(ctx), s.albums, bson.M{"_id": id})
}

func (s *Store) InsertAlbum(ctx context.Context, album *models.Album) error {
	_, err := s.albums.InsertOne(s.ctx(ctx), album)
	return translate(err)
}

func (s *Store) PatchAlbum(ctx context.Context, id string, patch store.AlbumPatch) error {
	set := bson.M{"updated_at": patch.UpdatedAt}
	update := bson.M{"$set": set}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.IsPublic != nil {
		set["is_public"] = *patch.IsPublic
	}
	if patch.ClearCover {
		update["$unset"] = bson.M{"cover_photo_id": ""}
	} else if patch.CoverPhotoID != nil {
		set["cover_photo_id"] = *patch.CoverPhotoID
	}
	return updateOne(s.ctx(ctx), s.albums, id, update)
}

func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	return deleteOne(s.ctx(ctx), s.albums, id)
}

func (s *Store) ListAlbums(ctx context.Context, q store.AlbumQuery) (store.Page[models.Album], error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.PublicOnly {
		filter["is_public"] = true
	}
	filter, err := keyset(filter, q.Cursor)
	if err != nil {
		return store.Page[models.Album]{}, err
	}
	albums, err := findAll[models.Album](s.ctx(ctx), s.albums, filter, findOptions(q.Limit, false))
	if err != nil {
		return store.Page[models.Album]{}, err
	}
	return store.NewPage(albums, q.Limit, store.AlbumKey), nil
}

func (s *Store) CountAlbums(ctx context.Context, userID string) (int64, error) {
	return s.albums.CountDocuments(s.ctx(ctx), bson.M{"user_id": userID})
}

func (s *Store) GetPhoto(ctx context.Context, id string) (models.Photo, error) {
	return findOne[models.Photo](s.ctx(ctx), s.photos, bson.M{"_id": id})
}

func (s *Store) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	_, err := s.photos.InsertOne(s.ctx(ctx), photo)
	return translate(err)
}

func (s *Store) PatchPhoto(ctx context.Context, id string, patch store.PhotoPatch) error {
	set := bson.M{"updated_at": patch.UpdatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Tags != nil {
		set["tags"] = []string(*patch.Tags)
	}
	return updateOne(s.ctx(ctx), s.photos, id, bson.M{"$set": set})
}

func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	return deleteOne(s.ctx(ctx), s.photos, id)
}

func (s *Store) ListPhotos(ctx context.Context, q store.PhotoQuery) (store.Page[models.Photo], error) {
	filter := bson.M{}
	albumIn := bson.M{}
	if q.AlbumIDs != nil {
		albumIn["$in"] = q.AlbumIDs
	}
	if q.AlbumID != "" {
		albumIn["$eq"] = q.AlbumID
	}
	if len(albumIn) > 0 {
		filter["album_id"] = albumIn
	}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.ExcludeID != "" {
		filter["_id"] = bson.M{"$ne": q.ExcludeID}
	}
	if !q.OldestFirst {
		var err error
		if filter, err = keyset(filter, q.Cursor); err != nil {
			return store.Page[models.Photo]{}, err
		}
	}
	photos, err := findAll[models.Photo](s.ctx(ctx), s.photos, filter, findOptions(q.Limit, q.OldestFirst))
	if err != nil {
		return store.Page[models.Photo]{}, err
	}
	return store.NewPage(photos, q.Limit, store.PhotoKey), nil
}

func (s *Store) CountPhotos(ctx context.Context, albumID string) (int64, error) {
	return s.photos.CountDocuments(s.ctx(ctx), bson.M{"album_id": albumID})
}

func (s *Store) CountStorageRefs(ctx context.Context, key string) (int64, error) {
	return s.photos.CountDocuments(s.ctx(ctx), bson.M{"$or": bson.A{
		bson.M{"storage_id": key},
		bson.M{"thumbnail_storage_id": key},
	}})
}

var _ store.Store = (*Store)(nil)
