package feed

import (
	"strings"

	"community-hub/internal/domain/entity"
)

// Storage buckets holding user media.
const (
	BucketAvatars       = "avatars"
	BucketPostImages    = "post-images"
	BucketListingImages = "listing-images"
)

// Buckets lists the buckets clients may upload to.
var Buckets = []string{BucketAvatars, BucketPostImages, BucketListingImages}

// Assets resolves stored object paths to public URLs.
type Assets interface {
	PublicURL(bucket, objectPath string) string
}

// assetURL turns a stored object path into a public URL. Absolute URLs and
// empty values are returned unchanged.
func (s *Service) assetURL(bucket, ref string) string {
	if s.Assets == nil || ref == "" || strings.Contains(ref, "://") {
		return ref
	}
	return s.Assets.PublicURL(bucket, strings.TrimPrefix(ref, "/"))
}

func (s *Service) resolveProfile(p *entity.Profile) {
	if p != nil {
		p.AvatarURL = s.assetURL(BucketAvatars, p.AvatarURL)
	}
}

func (s *Service) resolvePost(p *entity.Post) {
	p.ImageURL = s.assetURL(BucketPostImages, p.ImageURL)
	s.resolveProfile(p.Author)
}

// resolveAssets rewrites media references in decoded rows in place. Rows are
// decoded per caller, so shared calls never see each other's rewrites.
func (s *Service) resolveAssets(rows any) {
	if s.Assets == nil {
		return
	}
	switch rows := rows.(type) {
	case []entity.Post:
		for i := range rows {
			s.resolvePost(&rows[i])
		}
	case []entity.FeedPost:
		for i := range rows {
			s.resolvePost(&rows[i].Post)
		}
	case []entity.NearbyPost:
		for i := range rows {
			s.resolvePost(&rows[i].Post)
		}
	case []entity.Event:
		for i := range rows {
			s.resolveProfile(rows[i].Organizer)
		}
	case []entity.MarketplaceItem:
		for i := range rows {
			for j, ref := range rows[i].ImageURLs {
				rows[i].ImageURLs[j] = s.assetURL(BucketListingImages, ref)
			}
			s.resolveProfile(rows[i].Seller)
		}
	}
}
