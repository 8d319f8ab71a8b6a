package backend

import (
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeshaw/envdecode"

	"github.com/shelfd-tech/shelfd/core/access"
	"github.com/shelfd-tech/shelfd/core/client"
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/model"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// TestService holds the configuration for the tests
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
type TestService struct {
	Postgres string `env:"POSTGRES,required" description:"the connection string for the Postgres DB"`
	backend  *Backend
	client   client.Client
}

var testService TestService

func TestMain(m *testing.M) {
	if err := envdecode.Decode(&testService); err != nil {
		panic(err)
	}

	db := csql.OpenWithSchema(testService.Postgres, "_library_unit_test_")
	defer db.Close()
	db.ClearSchema()

	router := mux.NewRouter()
	testService.backend = New(&Builder{
		DB:     db,
		Router: router,
	})
	testService.client = client.NewWithRouter(router)

	code := m.Run()
	os.Exit(code)
}

// signup registers a new school and returns a client authenticated with
// the token from the signup response.
func signup(t *testing.T, name, password string) (access.Token, client.Client) {
	token := access.Token{}
	_, err := testService.client.RawPost("/schools", model.AuthData{Name: name, Password: password}, &token)
	if err != nil {
		t.Fatal(err)
	}
	return token, authClient(token)
}

func authClient(token access.Token) client.Client {
	return testService.client.WithBasicAuth(strconv.FormatInt(token.TokenID, 10), token.Secret)
}

func TestSchoolSignupAndLogin(t *testing.T) {
	_, c := signup(t, "Humboldt Gymnasium", "opensesame")

	// both the signup token and a fresh login token must be valid
	loginToken := access.Token{}
	status, err := testService.client.RawPost("/sessions",
		model.AuthData{Name: "humboldt gymnasium", Password: "opensesame"}, &loginToken)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusCreated, status)

	var students []model.Student
	_, err = c.RawGet("/students", &students)
	assert.NoError(t, err)
	_, err = authClient(loginToken).RawGet("/students", &students)
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	signup(t, "wrong password school", "right")

	status, _ := testService.client.RawPost("/sessions",
		model.AuthData{Name: "wrong password school", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginUnknownSchool(t *testing.T) {
	// an unknown school must be indistinguishable from a wrong password
	status, _ := testService.client.RawPost("/sessions",
		model.AuthData{Name: "never registered", Password: "whatever"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSessionLogout(t *testing.T) {
	token, c := signup(t, "logout school", "secret")

	status, err := c.RawDelete("/sessions", nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNoContent, status)

	var students []model.Student
	status, _ = c.RawGet("/students", &students)
	assert.Equal(t, http.StatusUnauthorized, status)

	// the token is gone, a second logout must fail
	status, _ = authClient(token).RawDelete("/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUnauthenticatedRequest(t *testing.T) {
	var students []model.Student
	status, _ := testService.client.RawGet("/students", &students)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSchoolChangePassword(t *testing.T) {
	_, c := signup(t, "password change school", "old-password")

	status, err := c.RawPut("/schools",
		map[string]string{"old_password": "old-password", "new_password": "new-password"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = testService.client.RawPost("/sessions",
		model.AuthData{Name: "password change school", Password: "old-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := access.Token{}
	_, err = testService.client.RawPost("/sessions",
		model.AuthData{Name: "password change school", Password: "new-password"}, &token)
	assert.NoError(t, err)
}

func TestSchoolChangePassword_WrongOldPassword(t *testing.T) {
	_, c := signup(t, "wrong old password school", "current")

	status, _ := c.RawPut("/schools",
		map[string]string{"old_password": "not current", "new_password": "other"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSchoolRename(t *testing.T) {
	_, c := signup(t, "old name school", "secret")

	status, err := c.RawPut("/schools", map[string]string{"name": "New Name School"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNoContent, status)

	// names are stored lower-cased
	token := access.Token{}
	_, err = testService.client.RawPost("/sessions",
		model.AuthData{Name: "new name school", Password: "secret"}, &token)
	assert.NoError(t, err)
}

func TestSchoolEdit_UnknownShape(t *testing.T) {
	_, c := signup(t, "unknown shape school", "secret")

	status, _ := c.RawPut("/schools", []byte(`{"unrelated":"shape"}`), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSchoolDelete(t *testing.T) {
	token, c := signup(t, "doomed school", "secret")

	status, _ := c.RawDelete("/schools", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, err := c.RawDelete("/schools", map[string]string{"password": "secret"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNoContent, status)

	// tokens are cascaded away with the school
	var students []model.Student
	status, _ = authClient(token).RawGet("/students", &students)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = testService.client.RawPost("/sessions",
		model.AuthData{Name: "doomed school", Password: "secret"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStudentCRUD(t *testing.T) {
	_, c := signup(t, "student crud school", "secret")

	student := model.Student{}
	_, err := c.RawPost("/students",
		model.Student{Name: "Ada", ClassLetter: "a", GraduationYear: 2028}, &student)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotZero(t, student.ID)
	assert.Equal(t, "Ada", student.Name)

	read := model.Student{}
	_, err = c.RawGet("/students/"+strconv.FormatInt(student.ID, 10), &read)
	assert.NoError(t, err)
	assert.Equal(t, student.ID, read.ID)
	assert.Equal(t, "a", read.ClassLetter)
	assert.Equal(t, 2028, read.GraduationYear)

	var list []model.Student
	_, err = c.RawGet("/students", &list)
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	read.Name = "Ada Lovelace"
	updated := model.Student{}
	_, err = c.RawPut("/students/"+strconv.FormatInt(student.ID, 10), read, &updated)
	assert.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	status, err := c.RawDelete("/students/"+strconv.FormatInt(student.ID, 10), nil)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	// deletion is not idempotent, the row is gone
	status, _ = c.RawDelete("/students/"+strconv.FormatInt(student.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = c.RawGet("/students/"+strconv.FormatInt(student.ID, 10), &read)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStudentUpdate_Missing(t *testing.T) {
	_, c := signup(t, "student update missing school", "secret")

	status, _ := c.RawPut("/students/424242", model.Student{Name: "Nobody"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNonNumericID(t *testing.T) {
	_, c := signup(t, "non numeric id school", "secret")

	status, _ := c.RawGet("/students/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = c.RawDelete("/books/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestContentTypeRequired(t *testing.T) {
	_, c := signup(t, "content type school", "secret")

	status, _ := c.WithHeader("Content-Type", "text/plain").
		RawPost("/students", []byte(`{"name":"Ada"}`), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStudentBulkCreate(t *testing.T) {
	_, c := signup(t, "bulk create school", "secret")

	// the malformed element is dropped, the valid ones are created
	body := []byte(`[
		{"name":"Grace","class_letter":"b","graduation_year":2027},
		{"name":42},
		{"name":"Alan","class_letter":"b","graduation_year":2027}
	]`)
	var created []model.Student
	status, err := c.RawPost("/students", body, &created)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusCreated, status)
	assert.Len(t, created, 2)
	assert.Equal(t, "Grace", created[0].Name)
	assert.Equal(t, "Alan", created[1].Name)
}

func TestTeacherCreate_NoBulk(t *testing.T) {
	_, c := signup(t, "teacher no bulk school", "secret")

	status, _ := c.RawPost("/teachers", []byte(`[{"name":"Turing"}]`), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	teacher := model.Teacher{}
	_, err := c.RawPost("/teachers", model.Teacher{Name: "Turing"}, &teacher)
	assert.NoError(t, err)
	assert.NotZero(t, teacher.ID)
}

func TestBookAliases(t *testing.T) {
	_, c := signup(t, "book alias school", "secret")

	book := model.Book{}
	_, err := c.RawPost("/books",
		model.Book{ISBN: "978-3-16-148410-0", Title: "Faust", Form: "9"}, &book)
	if err != nil {
		t.Fatal(err)
	}

	alias := model.Alias{}
	_, err = c.RawPost("/aliases", model.Alias{BookID: book.ID, Name: "Faust I"}, &alias)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotZero(t, alias.ID)

	// without the include parameter the relation is absent
	plain := model.Book{}
	_, err = c.RawGet("/books/"+strconv.FormatInt(book.ID, 10), &plain)
	assert.NoError(t, err)
	assert.Empty(t, plain.Aliases)

	withAliases := model.Book{}
	_, err = c.RawGet("/books/"+strconv.FormatInt(book.ID, 10)+"?include=aliases", &withAliases)
	assert.NoError(t, err)
	if assert.Len(t, withAliases.Aliases, 1) {
		assert.Equal(t, "Faust I", withAliases.Aliases[0].Name)
	}

	var aliases []model.Alias
	_, err = c.RawGet("/aliases", &aliases)
	assert.NoError(t, err)
	assert.Len(t, aliases, 1)
}

func TestBook_UnsupportedInclude(t *testing.T) {
	_, c := signup(t, "unsupported include school", "secret")

	book := model.Book{}
	_, err := c.RawPost("/books", model.Book{ISBN: "1-2-3", Title: "Emil", Form: "5"}, &book)
	if err != nil {
		t.Fatal(err)
	}

	status, _ := c.RawGet("/books/"+strconv.FormatInt(book.ID, 10)+"?include=lendings", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = c.RawGet("/teachers?include=basesets", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAliasCreate_UnknownBook(t *testing.T) {
	_, c := signup(t, "alias unknown book school", "secret")

	status, _ := c.RawPost("/aliases", model.Alias{BookID: 424242, Name: "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLendingFlow(t *testing.T) {
	_, c := signup(t, "lending school", "secret")

	student := model.Student{}
	if _, err := c.RawPost("/students",
		model.Student{Name: "Emmy", ClassLetter: "c", GraduationYear: 2026}, &student); err != nil {
		t.Fatal(err)
	}
	book := model.Book{}
	if _, err := c.RawPost("/books",
		model.Book{ISBN: "4-5-6", Title: "Algebra", Form: "11"}, &book); err != nil {
		t.Fatal(err)
	}

	lending := model.Lending{}
	_, err := c.RawPost("/lendings",
		model.Lending{PersonType: model.PersonStudent, PersonID: student.ID, BookID: book.ID}, &lending)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotZero(t, lending.ID)
	assert.False(t, lending.CreatedAt.IsZero())

	withLendings := model.Student{}
	_, err = c.RawGet("/students/"+strconv.FormatInt(student.ID, 10)+"?include=lendings", &withLendings)
	assert.NoError(t, err)
	if assert.Len(t, withLendings.LentBooks, 1) {
		assert.Equal(t, book.ID, withLendings.LentBooks[0].Book.ID)
		assert.Equal(t, "Algebra", withLendings.LentBooks[0].Book.Title)
	}

	status, err := c.RawDelete("/lendings/"+strconv.FormatInt(lending.ID, 10), nil)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	returned := model.Student{}
	_, err = c.RawGet("/students/"+strconv.FormatInt(student.ID, 10)+"?include=lendings", &returned)
	assert.NoError(t, err)
	assert.Empty(t, returned.LentBooks)
}

func TestLendingCreate_UnknownPerson(t *testing.T) {
	_, c := signup(t, "lending unknown person school", "secret")

	book := model.Book{}
	if _, err := c.RawPost("/books",
		model.Book{ISBN: "7-8-9", Title: "Physics", Form: "12"}, &book); err != nil {
		t.Fatal(err)
	}

	status, _ := c.RawPost("/lendings",
		model.Lending{PersonType: model.PersonStudent, PersonID: 424242, BookID: book.ID}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBaseSetFlow(t *testing.T) {
	_, c := signup(t, "base set school", "secret")

	student := model.Student{}
	if _, err := c.RawPost("/students",
		model.Student{Name: "Sofia", ClassLetter: "d", GraduationYear: 2029}, &student); err != nil {
		t.Fatal(err)
	}
	book := model.Book{}
	if _, err := c.RawPost("/books",
		model.Book{ISBN: "3-2-1", Title: "Atlas", Form: "7"}, &book); err != nil {
		t.Fatal(err)
	}

	baseSet := model.BaseSet{}
	_, err := c.RawPost("/base_sets",
		model.BaseSet{StudentID: student.ID, BookID: book.ID}, &baseSet)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotZero(t, baseSet.ID)

	withBaseSets := model.Student{}
	_, err = c.RawGet("/students/"+strconv.FormatInt(student.ID, 10)+"?include=basesets", &withBaseSets)
	assert.NoError(t, err)
	if assert.Len(t, withBaseSets.BaseSets, 1) {
		assert.Equal(t, "Atlas", withBaseSets.BaseSets[0].Book.Title)
	}

	status, err := c.RawDelete("/base_sets/"+strconv.FormatInt(baseSet.ID, 10), nil)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestTenantIsolation(t *testing.T) {
	_, cA := signup(t, "isolation school a", "secret")
	_, cB := signup(t, "isolation school b", "secret")

	student := model.Student{}
	if _, err := cA.RawPost("/students",
		model.Student{Name: "Mine", ClassLetter: "a", GraduationYear: 2030}, &student); err != nil {
		t.Fatal(err)
	}
	book := model.Book{}
	if _, err := cA.RawPost("/books",
		model.Book{ISBN: "0-0-1", Title: "Secret Diary", Form: "8"}, &book); err != nil {
		t.Fatal(err)
	}

	var list []model.Student
	_, err := cB.RawGet("/students", &list)
	assert.NoError(t, err)
	assert.Empty(t, list)

	status, _ := cB.RawGet("/students/"+strconv.FormatInt(student.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = cB.RawDelete("/students/"+strconv.FormatInt(student.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// cross-tenant writes through a foreign book must not resolve either
	status, _ = cB.RawPost("/aliases", model.Alias{BookID: book.ID, Name: "stolen"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = cB.RawDelete("/books/"+strconv.FormatInt(book.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// the owner still sees everything
	read := model.Student{}
	_, err = cA.RawGet("/students/"+strconv.FormatInt(student.ID, 10), &read)
	assert.NoError(t, err)
	assert.Equal(t, "Mine", read.Name)
}
