package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/testutil"
	"gorm.io/gorm"
)

func superAdmin(t *testing.T, db *gorm.DB) *access.Identity {
	t.Helper()
	user := testutil.CreateUser(t, db, "root", models.RoleSuperAdmin)
	return &access.Identity{UserID: user.ID, Username: user.Username, Role: models.RoleSuperAdmin}
}

func newAuthService(db *gorm.DB) *AuthService {
	return NewAuthService(repository.NewUserRepository(db), repository.NewAreaAssignmentRepository(db))
}

func TestAuthService_SignupCreatesPublicIdentity(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newAuthService(db)

	user, err := svc.Signup(SignupInput{Username: " visitor ", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "visitor", user.Username)
	assert.Equal(t, models.RolePublic, user.Role)

	_, err = svc.Signup(SignupInput{Username: "visitor", Password: "longenough"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Signup(SignupInput{Username: "short", Password: "123"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	logged, err := svc.Login(LoginInput{Username: "visitor", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(LoginInput{Username: "visitor", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(LoginInput{Username: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newAuthService(db)

	area := testutil.CreateArea(t, db, "Delhi District")
	staff, assignment := testutil.CreateAreaAdmin(t, db, "delhi_admin", area.ID)
	orphan := testutil.CreateUser(t, db, "orphan", models.RoleAreaAdmin)
	admin := testutil.CreateUser(t, db, "admin", models.RoleSuperAdmin)

	id, err := svc.ResolveIdentity(staff.ID)
	require.NoError(t, err)
	require.NotNil(t, id.AreaID)
	assert.Equal(t, area.ID, *id.AreaID)
	assert.Equal(t, assignment.ID, id.AssignmentID)
	assert.False(t, id.Orphaned())

	id, err = svc.ResolveIdentity(orphan.ID)
	require.NoError(t, err)
	assert.True(t, id.Orphaned())

	// Deactivating the assignment orphans the identity.
	require.NoError(t, db.Model(assignment).Update("is_active", false).Error)
	id, err = svc.ResolveIdentity(staff.ID)
	require.NoError(t, err)
	assert.True(t, id.Orphaned())

	id, err = svc.ResolveIdentity(admin.ID)
	require.NoError(t, err)
	assert.True(t, id.IsSuperAdmin())

	_, err = svc.ResolveIdentity(424242)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAreaAssignmentService_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	root := superAdmin(t, db)
	svc := NewAreaAssignmentService(
		repository.NewAreaAssignmentRepository(db),
		repository.NewAreaRepository(db),
		repository.NewUserRepository(db),
	)
	auth := newAuthService(db)

	mumbai := testutil.CreateArea(t, db, "Mumbai District")
	pune := testutil.CreateArea(t, db, "Pune District")

	assignment, err := svc.Create(root, CreateAreaAssignmentInput{
		Username: "mumbai_admin",
		Password: "admin12345",
		AreaID:   mumbai.ID,
		Name:     "Mumbai Admin",
		Email:    "mumbai@relief.org",
	})
	require.NoError(t, err)
	assert.True(t, assignment.IsActive)
	assert.Equal(t, models.RoleAreaAdmin, assignment.User.Role)

	_, err = auth.Login(LoginInput{Username: "mumbai_admin", Password: "admin12345"})
	require.NoError(t, err)

	_, err = svc.Create(root, CreateAreaAssignmentInput{
		Username: "mumbai_admin", Password: "admin12345", AreaID: pune.ID, Name: "Dup", Email: "dup@relief.org",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Create(root, CreateAreaAssignmentInput{Username: "x", AreaID: pune.ID})
	assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))

	updated, err := svc.Update(root, assignment.ID, UpdateAreaAssignmentInput{
		AreaID:   pune.ID,
		Name:     "Pune Admin",
		Email:    "pune@relief.org",
		IsActive: true,
		Password: "newpassword1",
	})
	require.NoError(t, err)
	assert.Equal(t, pune.ID, updated.AreaID)

	_, err = auth.Login(LoginInput{Username: "mumbai_admin", Password: "newpassword1"})
	require.NoError(t, err)

	staff, err := auth.ResolveIdentity(assignment.UserID)
	require.NoError(t, err)
	_, err = svc.List(staff)
	assert.True(t, apierrors.IsKind(err, apierrors.KindAccessDenied))

	require.NoError(t, svc.Delete(root, assignment.ID))
	assert.Zero(t, testutil.Count(t, db.Where("role = ?", models.RoleAreaAdmin), &models.User{}))
	assert.ErrorIs(t, svc.Delete(root, assignment.ID), ErrAreaAssignmentNotFound)
}

func TestAreaService_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	root := superAdmin(t, db)
	svc := NewAreaService(repository.NewAreaRepository(db))

	area, err := svc.Create(root, AreaInput{Name: "Mumbai District", Address: "Mumbai", PostalCode: "400001"})
	require.NoError(t, err)

	category := testutil.CreateCategory(t, db, "Food")
	product := testutil.CreateProduct(t, db, category.ID, "Rice", "kg")
	testutil.CreateNeed(t, db, area.ID, product.ID, 1, models.PriorityLow)
	testutil.CreateNeed(t, db, area.ID, product.ID, 2, models.PriorityHigh)
	testutil.CreateAreaAdmin(t, db, "mumbai_admin", area.ID)

	require.NoError(t, svc.Delete(root, area.ID))

	assert.Zero(t, testutil.Count(t, db, &models.Need{}))
	assert.Zero(t, testutil.Count(t, db, &models.AreaAssignment{}))
	assert.Zero(t, testutil.Count(t, db, &models.Area{}))
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.User{}), "only the super admin remains")

	assert.ErrorIs(t, svc.Delete(root, area.ID), ErrAreaNotFound)

	_, err = svc.Create(root, AreaInput{Name: "", Address: "x"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "name")
	assert.Contains(t, apiErr.Fields, "postal_code")
}

func TestReferenceDataReadOnlyForAreaAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	area := testutil.CreateArea(t, db, "Pune District")
	user, _ := testutil.CreateAreaAdmin(t, db, "pune_admin", area.ID)
	staff := &access.Identity{UserID: user.ID, Role: models.RoleAreaAdmin, AreaID: &area.ID}

	categories := NewCategoryService(repository.NewCategoryRepository(db))
	products := NewProductService(repository.NewProductRepository(db), repository.NewCategoryRepository(db))
	category := testutil.CreateCategory(t, db, "Medicine")

	_, err := categories.List(staff)
	require.NoError(t, err)
	_, err = products.List(staff, &category.ID)
	require.NoError(t, err)

	_, err = categories.Create(staff, CategoryInput{Name: "Water"})
	assert.True(t, apierrors.IsKind(err, apierrors.KindAccessDenied))
	_, err = products.Create(staff, ProductInput{Name: "ORS", Unit: "packet", CategoryID: category.ID})
	assert.True(t, apierrors.IsKind(err, apierrors.KindAccessDenied))
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Category{}))
	assert.Zero(t, testutil.Count(t, db, &models.Product{}))
}

func TestProductService_CategoryMustExist(t *testing.T) {
	db := testutil.NewDB(t)
	root := superAdmin(t, db)
	svc := NewProductService(repository.NewProductRepository(db), repository.NewCategoryRepository(db))

	_, err := svc.Create(root, ProductInput{Name: "Rice", Unit: "kg", CategoryID: 77})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	category := testutil.CreateCategory(t, db, "Food")
	product, err := svc.Create(root, ProductInput{Name: " Rice ", Unit: "kg", CategoryID: category.ID})
	require.NoError(t, err)
	assert.Equal(t, "Rice", product.Name)
	assert.Equal(t, "Food", product.Category.Name)
}

func TestContactService(t *testing.T) {
	db := testutil.NewDB(t)
	root := superAdmin(t, db)
	svc := NewContactService(repository.NewContactRepository(db))

	message, err := svc.Submit(nil, SubmitContactInput{
		Name:    "Asha",
		Email:   "asha@example.com",
		Subject: "Water <script>alert(1)</script>",
		Message: "Our street needs drinking water",
	})
	require.NoError(t, err)
	assert.Equal(t, "Water", message.Subject)
	assert.Equal(t, models.ContactStatusNew, message.Status)

	_, err = svc.Submit(nil, SubmitContactInput{Name: "Ravi", Email: "not-an-email", Message: "<b></b>"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Fields, "email")
	assert.Contains(t, apiErr.Fields, "subject")
	assert.Contains(t, apiErr.Fields, "message")

	visitor := &access.Identity{UserID: 99, Role: models.RolePublic}
	_, _, err = svc.List(visitor, ListContactsInput{})
	assert.True(t, apierrors.IsKind(err, apierrors.KindAccessDenied))

	message, err = svc.UpdateStatus(root, message.ID, models.ContactStatusReplied)
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusReplied, message.Status)

	message, err = svc.UpdateStatus(root, message.ID, models.ContactStatusResolved)
	require.NoError(t, err)

	// A message resolved by mistake can be reopened.
	message, err = svc.UpdateStatus(root, message.ID, models.ContactStatusNew)
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusNew, message.Status)

	_, err = svc.UpdateStatus(root, message.ID, models.ContactStatus("spam"))
	assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))

	messages, total, err := svc.List(root, ListContactsInput{Search: "drinking"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, messages, 1)

	require.NoError(t, svc.Delete(root, message.ID))
	assert.ErrorIs(t, svc.Delete(root, message.ID), ErrContactMessageNotFound)
}

func TestPublicService_Categories(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPublicService(
		repository.NewStatsRepository(db),
		repository.NewAreaRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewProductRepository(db),
		repository.NewNeedRepository(db),
	)

	food := testutil.CreateCategory(t, db, "Food")
	testutil.CreateCategory(t, db, "Shelter")
	testutil.CreateProduct(t, db, food.ID, "Rice", "kg")
	testutil.CreateProduct(t, db, food.ID, "Lentils", "kg")

	categories, err := svc.Categories(nil)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Food", categories[0].Name)
	assert.Len(t, categories[0].Products, 2)
	assert.Empty(t, categories[1].Products)

	_, err = svc.AreaDetail(nil, 12345)
	assert.ErrorIs(t, err, ErrAreaNotFound)
}
