package usecase

import (
	"context"
	"strings"

	"storefront/internal/domain/content"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

const excerptLength = 160

type BlogPostInput struct {
	Title           string
	Slug            string
	Content         string
	Excerpt         string
	CoverImageURL   string
	Status          model.BlogPostStatus
	Tags            []string
	MetaTitle       string
	MetaDescription string
	FocusKeyword    string
}

type BlogListOutput struct {
	Items []model.BlogPost `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type BlogUsecase struct {
	posts repo.BlogPostRepository
	ids   IDGenerator
	clock Clock
}

func NewBlogUsecase(posts repo.BlogPostRepository, rt Runtime) *BlogUsecase {
	return &BlogUsecase{posts: posts, ids: rt.IDs, clock: rt.Clock}
}

// 一般には公開済みだけ
func (u *BlogUsecase) List(ctx context.Context, actor Actor, q repo.BlogPostListQuery) (BlogListOutput, error) {
	if err := validatePaging(q.Page, q.Limit); err != nil {
		return BlogListOutput{}, err
	}
	if !actor.IsAdmin() {
		q.Status = string(model.BlogPostPublished)
	} else if q.Status != "" && !validBlogStatus(model.BlogPostStatus(q.Status)) {
		return BlogListOutput{}, badRequest("invalid status")
	}
	items, total, err := u.posts.List(ctx, q)
	if err != nil {
		return BlogListOutput{}, errDB
	}
	return BlogListOutput{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// idかslugで引く。下書きは管理者のみ。
func (u *BlogUsecase) Get(ctx context.Context, actor Actor, idOrSlug string) (model.BlogPost, error) {
	var (
		p   model.BlogPost
		err error
	)
	if _, perr := uuid.Parse(idOrSlug); perr == nil {
		p, err = u.posts.FindByID(ctx, idOrSlug)
	} else {
		p, err = u.posts.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return model.BlogPost{}, mapRepoErr(err)
	}
	if p.Status != model.BlogPostPublished && !actor.IsAdmin() {
		return model.BlogPost{}, errNotFound
	}
	return p, nil
}

func (u *BlogUsecase) Create(ctx context.Context, actor Actor, in BlogPostInput) (model.BlogPost, error) {
	if err := requireAdmin(actor); err != nil {
		return model.BlogPost{}, err
	}
	p := model.BlogPost{ID: u.ids.NewID(), AuthorID: actor.UserID}
	if err := u.apply(&p, in); err != nil {
		return model.BlogPost{}, err
	}
	if err := u.posts.Create(ctx, p); err != nil {
		return model.BlogPost{}, mapRepoErr(err)
	}
	return p, nil
}

func (u *BlogUsecase) Update(ctx context.Context, actor Actor, id string, in BlogPostInput) (model.BlogPost, error) {
	if err := requireAdmin(actor); err != nil {
		return model.BlogPost{}, err
	}
	p, err := u.posts.FindByID(ctx, id)
	if err != nil {
		return model.BlogPost{}, mapRepoErr(err)
	}
	if err := u.apply(&p, in); err != nil {
		return model.BlogPost{}, err
	}
	if err := u.posts.Update(ctx, p); err != nil {
		return model.BlogPost{}, mapRepoErr(err)
	}
	return p, nil
}

func (u *BlogUsecase) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return mapRepoErr(u.posts.Delete(ctx, id))
}

// 保存済みの記事をチェックし直す
func (u *BlogUsecase) AuditSEO(ctx context.Context, actor Actor, id string) (content.SEOReport, error) {
	if err := requireAdmin(actor); err != nil {
		return content.SEOReport{}, err
	}
	p, err := u.posts.FindByID(ctx, id)
	if err != nil {
		return content.SEOReport{}, mapRepoErr(err)
	}
	return content.AuditSEO(seoInput(p)), nil
}

// 入力を反映して派生項目を計算し直す
func (u *BlogUsecase) apply(p *model.BlogPost, in BlogPostInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return badRequest("title required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return badRequest("content required")
	}
	status := in.Status
	if status == "" {
		status = model.BlogPostDraft
	}
	if !validBlogStatus(status) {
		return badRequest("invalid status")
	}

	slug := content.Slugify(in.Slug)
	if slug == "" {
		slug = content.Slugify(title)
	}
	if slug == "" {
		return badRequest("slug could not be derived from title")
	}

	p.Title = title
	p.Slug = slug
	p.Content = in.Content
	p.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	p.Tags = joinTags(in.Tags)
	p.MetaTitle = strings.TrimSpace(in.MetaTitle)
	p.MetaDescription = strings.TrimSpace(in.MetaDescription)
	p.FocusKeyword = strings.TrimSpace(in.FocusKeyword)

	p.Excerpt = strings.TrimSpace(in.Excerpt)
	if p.Excerpt == "" {
		p.Excerpt = content.Excerpt(in.Content, excerptLength)
	}
	p.ReadingTimeMinutes = content.ReadingTimeMinutes(in.Content)
	p.ReadabilityScore = content.Readability(in.Content)
	p.SEOScore = content.AuditSEO(seoInput(*p)).Score

	// 初回公開時だけ
	if status == model.BlogPostPublished && p.PublishedAt == nil {
		now := u.clock.Now()
		p.PublishedAt = &now
	}
	p.Status = status
	return nil
}

func seoInput(p model.BlogPost) content.SEOInput {
	desc := p.MetaDescription
	if desc == "" {
		desc = p.Excerpt
	}
	title := p.MetaTitle
	if title == "" {
		title = p.Title
	}
	return content.SEOInput{
		Title:           title,
		Slug:            p.Slug,
		MetaDescription: desc,
		FocusKeyword:    p.FocusKeyword,
		Content:         p.Content,
	}
}

func validBlogStatus(s model.BlogPostStatus) bool {
	return s == model.BlogPostDraft || s == model.BlogPostPublished
}

func joinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || strings.Contains(t, ",") {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}
